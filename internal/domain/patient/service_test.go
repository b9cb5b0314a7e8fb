package patient

import (
	"context"
	"errors"
	"testing"
	"time"
)

func newTestService() (*Service, *mockRepo) {
	repo := newMockRepo()
	svc := NewService(repo, NewShiftClassifier())
	// Monday 2024-05-06 09:30
	svc.now = func() time.Time { return time.Date(2024, 5, 6, 9, 30, 0, 0, time.UTC) }
	return svc, repo
}

func TestFetchPatients_SortsAdmissions(t *testing.T) {
	svc, repo := newTestService()
	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	repo.seed(Patient{Name: "Layla"},
		Admission{AdmissionDate: base.AddDate(0, 0, -30), Status: StatusDischarged},
		Admission{AdmissionDate: base, Status: StatusActive},
		Admission{AdmissionDate: base.AddDate(0, 0, -60), Status: StatusDischarged},
	)

	svc.FetchPatients(context.Background())

	st := svc.Snapshot()
	if st.Error != "" || st.Loading {
		t.Fatalf("unexpected state: %+v", st)
	}
	if len(st.Items) != 1 {
		t.Fatalf("expected 1 patient, got %d", len(st.Items))
	}
	adms := st.Items[0].Admissions
	for i := 1; i < len(adms); i++ {
		if adms[i].AdmissionDate.After(adms[i-1].AdmissionDate) {
			t.Fatalf("admissions not sorted newest first: %v", adms)
		}
	}
	if !adms[0].AdmissionDate.Equal(base) {
		t.Errorf("expected current admission %v, got %v", base, adms[0].AdmissionDate)
	}
}

func TestFetchPatients_FailureKeepsCache(t *testing.T) {
	svc, repo := newTestService()
	repo.seed(Patient{Name: "Layla"})
	svc.FetchPatients(context.Background())

	repo.listErr = errors.New("connection refused")
	svc.FetchPatients(context.Background())

	st := svc.Snapshot()
	if len(st.Items) != 1 {
		t.Errorf("expected cache to survive failure, got %d items", len(st.Items))
	}
	if st.Error == "" {
		t.Error("expected error to be recorded")
	}
	if st.Loading {
		t.Error("expected loading to be cleared")
	}
}

func TestAddPatient(t *testing.T) {
	svc, repo := newTestService()

	p, err := svc.AddPatient(context.Background(), validNewPatient())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if repo.txCalls != 1 {
		t.Errorf("expected one transaction, got %d", repo.txCalls)
	}
	if p.ID == 0 || p.Gender != "female" {
		t.Errorf("unexpected patient: %+v", p)
	}
	a, ok := p.CurrentAdmission()
	if !ok {
		t.Fatal("expected an admission")
	}
	if a.VisitNumber != 1 || a.Status != StatusActive {
		t.Errorf("unexpected admission: %+v", a)
	}
	if a.ShiftType != ShiftMorning || a.IsWeekend {
		t.Errorf("expected weekday morning shift, got %s weekend=%v", a.ShiftType, a.IsWeekend)
	}
	if p.DoctorName() != "Dr. Hana Salem" {
		t.Errorf("expected joined doctor name, got %q", p.DoctorName())
	}

	items := svc.Patients()
	if len(items) != 1 || items[0].ID != p.ID {
		t.Errorf("expected new patient prepended to cache, got %+v", items)
	}
}

func TestAddPatient_ValidationSkipsRemote(t *testing.T) {
	svc, repo := newTestService()
	in := validNewPatient()
	in.MRN = ""

	if _, err := svc.AddPatient(context.Background(), in); err == nil {
		t.Fatal("expected validation error")
	}
	if repo.txCalls != 0 || len(repo.patients) != 0 {
		t.Error("expected no remote calls")
	}
}

func TestAddPatient_RemoteFailure(t *testing.T) {
	svc, repo := newTestService()
	repo.createErr = errors.New("duplicate key value violates unique constraint")

	_, err := svc.AddPatient(context.Background(), validNewPatient())
	if err == nil {
		t.Fatal("expected error")
	}
	st := svc.Snapshot()
	if st.Error == "" || st.Loading || len(st.Items) != 0 {
		t.Errorf("unexpected state: %+v", st)
	}
}

func TestAddAdmission(t *testing.T) {
	svc, repo := newTestService()
	id := repo.seed(Patient{Name: "Layla"},
		Admission{AdmissionDate: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), Status: StatusDischarged, VisitNumber: 1},
	)

	// Friday 20:00
	at := time.Date(2024, 5, 10, 20, 0, 0, 0, time.UTC)
	p, err := svc.AddAdmission(context.Background(), id, AdmissionInput{
		AdmissionDate: at, Department: "Neurology", Diagnosis: "Stroke",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	a, _ := p.CurrentAdmission()
	if a.VisitNumber != 2 {
		t.Errorf("expected visit 2, got %d", a.VisitNumber)
	}
	if a.ShiftType != ShiftWeekendNight || !a.IsWeekend {
		t.Errorf("expected weekend night, got %s", a.ShiftType)
	}
	if a.DoctorName() != NotAssigned {
		t.Errorf("expected unassigned doctor, got %q", a.DoctorName())
	}
}

func TestAddAdmission_RejectsSecondActive(t *testing.T) {
	svc, repo := newTestService()
	id := repo.seed(Patient{Name: "Layla"}, Admission{Status: StatusActive, VisitNumber: 1})

	_, err := svc.AddAdmission(context.Background(), id, AdmissionInput{Department: "Neurology", Diagnosis: "Stroke"})
	if !errors.Is(err, ErrActiveAdmissionExists) {
		t.Fatalf("expected ErrActiveAdmissionExists, got %v", err)
	}
	if svc.Snapshot().Error == "" {
		t.Error("expected error to be recorded")
	}
}

func TestTransferAdmission(t *testing.T) {
	svc, repo := newTestService()
	id := repo.seed(Patient{Name: "Layla"}, Admission{Status: StatusActive, VisitNumber: 1})
	var admissionID int64
	for aid := range repo.admissions {
		admissionID = aid
	}

	p, err := svc.TransferAdmission(context.Background(), admissionID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.ID != id || p.Admissions[0].Status != StatusTransferred {
		t.Errorf("unexpected patient after transfer: %+v", p)
	}

	_, err = svc.TransferAdmission(context.Background(), admissionID)
	if !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("expected ErrInvalidTransition on second transfer, got %v", err)
	}
}

func TestUpdatePatient_RefreshesSelection(t *testing.T) {
	svc, repo := newTestService()
	id := repo.seed(Patient{Name: "Layla", MRN: "M1"})
	svc.FetchPatients(context.Background())
	if _, err := svc.Select(id); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	name := "Layla H."
	if _, err := svc.UpdatePatient(context.Background(), id, UpdateInput{Name: &name}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if sel := svc.Selected(); sel == nil || sel.Name != "Layla H." {
		t.Errorf("expected selection to be refreshed, got %+v", sel)
	}
	if items := svc.Patients(); items[0].Name != "Layla H." {
		t.Errorf("expected cache to be updated in place, got %+v", items)
	}
}

func TestDeletePatient_ClearsSelection(t *testing.T) {
	svc, repo := newTestService()
	id := repo.seed(Patient{Name: "Layla"})
	svc.FetchPatients(context.Background())
	svc.Select(id)

	if err := svc.DeletePatient(context.Background(), id); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if svc.Selected() != nil {
		t.Error("expected selection to be cleared")
	}
	if len(svc.Patients()) != 0 {
		t.Error("expected patient to be removed from cache")
	}

	if err := svc.DeletePatient(context.Background(), id); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestSelect_NotCached(t *testing.T) {
	svc, _ := newTestService()
	if _, err := svc.Select(99); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestGetPatient_FallsBackToRepo(t *testing.T) {
	svc, repo := newTestService()
	id := repo.seed(Patient{Name: "Layla"})

	p, err := svc.GetPatient(context.Background(), id)
	if err != nil || p.Name != "Layla" {
		t.Fatalf("unexpected result: %+v %v", p, err)
	}
}
