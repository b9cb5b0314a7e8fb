package discharge

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/ehr/ward/internal/domain/consultation"
	"github.com/ehr/ward/internal/domain/patient"
)

func TestMerge_AdmissionsThenConsultations(t *testing.T) {
	m := newMockRepo()
	seed(m)

	got := Merge(m.admissions, m.consultations)
	if len(got) != len(m.admissions)+len(m.consultations) {
		t.Fatalf("expected %d entries, got %d", len(m.admissions)+len(m.consultations), len(got))
	}
	want := []string{"a-11", "a-12", "c-21", "c-22"}
	for i, uid := range want {
		if got[i].UnifiedID() != uid {
			t.Errorf("position %d: expected %s, got %s", i, uid, got[i].UnifiedID())
		}
	}
}

func TestMerge_Empty(t *testing.T) {
	got := Merge(nil, nil)
	if got == nil || len(got) != 0 {
		t.Errorf("expected empty non-nil list, got %#v", got)
	}
}

func TestFromAdmission_NoStaffIsNotAssigned(t *testing.T) {
	p := FromAdmission(AdmissionRow{ID: 5, PatientID: 1, Department: "ICU", Status: patient.StatusActive, ShiftType: patient.ShiftEvening})
	if p.DoctorName != patient.NotAssigned {
		t.Errorf("expected %q, got %q", patient.NotAssigned, p.DoctorName)
	}
	if p.IsConsultation || p.ConsultationID != nil {
		t.Error("admission must not be tagged as consultation")
	}
	if p.ShiftType != patient.ShiftEvening {
		t.Errorf("expected shift kept verbatim, got %s", p.ShiftType)
	}
}

func TestFromConsultation_Unassigned(t *testing.T) {
	c := consultation.Consultation{
		ID: 22, PatientID: 4, MRN: "MRN-4", PatientName: "Sami Odeh",
		CreatedAt: fixedNow, Specialty: "Cardiology", Reason: "Chest pain",
		Status: consultation.StatusActive,
	}
	p := FromConsultation(c)

	if p.AdmittingDoctorID != 0 {
		t.Errorf("expected doctor id 0, got %d", p.AdmittingDoctorID)
	}
	if p.DoctorName != PendingAssignment {
		t.Errorf("expected %q, got %q", PendingAssignment, p.DoctorName)
	}
	if p.Department != "Cardiology" || p.Diagnosis != "Chest pain" {
		t.Errorf("unexpected mapping: %+v", p)
	}
	if p.ShiftType != patient.ShiftMorning || p.IsWeekend {
		t.Errorf("expected weekday morning, got %s weekend=%v", p.ShiftType, p.IsWeekend)
	}
	if !p.IsConsultation || p.ConsultationID == nil || *p.ConsultationID != 22 {
		t.Errorf("expected consultation provenance, got %+v", p)
	}
	if !p.AdmissionDate.Equal(fixedNow) {
		t.Errorf("expected created_at as admission date")
	}
}

func TestActivePatient_JSONCarriesUnifiedID(t *testing.T) {
	raw, err := json.Marshal(ActivePatient{ID: 21, IsConsultation: true})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(raw), `"unified_id":"c-21"`) {
		t.Errorf("unified_id missing: %s", raw)
	}
}

func TestDischargeData_Validate(t *testing.T) {
	follow := fixedNow.Add(7 * 24 * time.Hour)
	tests := []struct {
		name    string
		data    DischargeData
		wantErr bool
	}{
		{"valid", DischargeData{DischargeType: "home", DischargeNote: "stable"}, false},
		{"follow up with date", DischargeData{DischargeNote: "stable", FollowUpRequired: true, FollowUpDate: &follow}, false},
		{"blank note", DischargeData{DischargeNote: "  "}, true},
		{"follow up without date", DischargeData{DischargeNote: "stable", FollowUpRequired: true}, true},
		{"date without follow up", DischargeData{DischargeNote: "stable", FollowUpDate: &follow}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.data.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidData) {
				t.Errorf("expected ErrInvalidData, got %v", err)
			}
		})
	}
}
