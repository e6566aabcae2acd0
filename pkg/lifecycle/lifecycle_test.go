package lifecycle

import (
	"context"
	"errors"
	"testing"
)

type fake struct {
	name    string
	failOn  bool
	journal *[]string
}

func (f *fake) Name() string { return f.name }
func (f *fake) Start(context.Context) error {
	if f.failOn { return errors.New("boom") }
	*f.journal = append(*f.journal, "start:"+f.name)
	return nil
}
func (f *fake) Stop(context.Context) error {
	*f.journal = append(*f.journal, "stop:"+f.name)
	return nil
}

func TestManager_StartStopOrder(t *testing.T) {
	var j []string
	m := New()
	m.Add(&fake{name: "a", journal: &j})
	m.Add(&fake{name: "b", journal: &j})
	m.Add(nil)
	if err := m.StartAll(context.Background()); err != nil { t.Fatalf("start: %v", err) }
	if err := m.StopAll(context.Background()); err != nil { t.Fatalf("stop: %v", err) }
	want := []string{"start:a", "start:b", "stop:b", "stop:a"}
	if len(j) != len(want) { t.Fatalf("journal=%v", j) }
	for i := range want {
		if j[i] != want[i] { t.Fatalf("journal=%v want %v", j, want) }
	}
}

func TestManager_StartFailure_StopsStarted(t *testing.T) {
	var j []string
	m := New()
	m.Add(&fake{name: "a", journal: &j})
	m.Add(&fake{name: "b", failOn: true, journal: &j})
	if err := m.StartAll(context.Background()); err == nil { t.Fatalf("want start error") }
	if len(j) != 2 || j[1] != "stop:a" { t.Fatalf("journal=%v", j) }
}

type failStop struct{ fake }

func (f *failStop) Stop(context.Context) error { return errors.New("stuck") }

func TestManager_StopAll_JoinsErrorsAndContinues(t *testing.T) {
	var j []string
	m := New()
	m.Add(&fake{name: "a", journal: &j})
	m.Add(&failStop{fake{name: "b", journal: &j}})
	m.Add(&fake{name: "c", journal: &j})
	if err := m.StartAll(context.Background()); err != nil { t.Fatalf("start: %v", err) }
	err := m.StopAll(context.Background())
	if err == nil || err.Error() != "stuck" { t.Fatalf("want joined stop error, got %v", err) }
	if j[len(j)-2] != "stop:c" || j[len(j)-1] != "stop:a" { t.Fatalf("journal=%v", j) }
	if err := m.StopAll(context.Background()); err != nil { t.Fatalf("second stop: %v", err) }
}
