package daemon

import (
	"encoding/json"
	"testing"
)

func TestCommandOmitsEmptyFields(t *testing.T) {
	data, err := json.Marshal(Command{Cmd: "sensors"})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	if string(data) != `{"cmd":"sensors"}` {
		t.Errorf("json = %s", data)
	}
}

func TestEventDecodesExtraValues(t *testing.T) {
	j := `{"event":"accel","sensor":"accelerometer","values":[0.1,0.2,9.8,3],"accuracy":3,"unknown":"x"}`

	var ev Event
	if err := json.Unmarshal([]byte(j), &ev); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if ev.Event != EventAccel {
		t.Errorf("event = %q, want %q", ev.Event, EventAccel)
	}
	if len(ev.Values) != 4 {
		t.Errorf("values = %v, want 4 entries", ev.Values)
	}
	if ev.Accuracy == nil || *ev.Accuracy != 3 {
		t.Errorf("accuracy = %v, want 3", ev.Accuracy)
	}
	if ev.Timestamp != nil {
		t.Errorf("timestamp = %v, want nil", *ev.Timestamp)
	}
}

func TestResponseError(t *testing.T) {
	j := `{"ok":false,"error":"sensor permission denied"}`

	var resp Response
	if err := json.Unmarshal([]byte(j), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if resp.OK {
		t.Error("ok = true, want false")
	}
	if resp.Error != "sensor permission denied" {
		t.Errorf("error = %q", resp.Error)
	}
}
