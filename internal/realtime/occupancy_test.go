package realtime

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestSpotStatusDecoding(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    SpotStatus
		wantErr bool
	}{
		{name: "boolean form", in: `{"id":"5","occupied":true}`, want: SpotStatus{ID: "5", Occupied: true}},
		{name: "status occupied", in: `{"id":"7","status":"occupied"}`, want: SpotStatus{ID: "7", Occupied: true}},
		{name: "status available", in: `{"id":"7","status":"available"}`, want: SpotStatus{ID: "7"}},
		{name: "numeric id", in: `{"id":12,"status":"Occupied"}`, want: SpotStatus{ID: "12", Occupied: true}},
		{name: "occupied wins over status", in: `{"id":"1","occupied":false,"status":"occupied"}`, want: SpotStatus{ID: "1"}},
		{name: "missing id", in: `{"occupied":true}`, wantErr: true},
		{name: "blank id", in: `{"id":"  ","occupied":true}`, wantErr: true},
		{name: "missing state", in: `{"id":"1"}`, wantErr: true},
		{name: "unknown status", in: `{"id":"1","status":"maybe"}`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got SpotStatus
			err := json.Unmarshal([]byte(tt.in), &got)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %+v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestSnapshotValidateRejectsDuplicates(t *testing.T) {
	s := Snapshot{{ID: "1"}, {ID: "2", Occupied: true}, {ID: "1", Occupied: true}}
	if err := s.Validate(); !errors.Is(err, ErrDuplicateSpot) {
		t.Fatalf("Validate = %v, want ErrDuplicateSpot", err)
	}
	if err := (Snapshot{{ID: "1"}, {ID: "2"}}).Validate(); err != nil {
		t.Fatalf("Validate on unique ids = %v", err)
	}
}

func TestBoardReplaceIsTotal(t *testing.T) {
	b := NewBoard()
	b.Replace(Snapshot{{ID: "1", Occupied: true}})
	b.Replace(Snapshot{{ID: "2", Occupied: true}})

	cur := b.Current()
	if len(cur) != 1 || cur[0].ID != "2" {
		t.Fatalf("current = %+v, want only spot 2", cur)
	}
}

func TestBoardDoesNotAlias(t *testing.T) {
	b := NewBoard()
	in := Snapshot{{ID: "1"}}
	b.Replace(in)
	in[0].Occupied = true

	out := b.Current()
	if out[0].Occupied {
		t.Fatal("board aliased the caller's slice")
	}
	out[0].ID = "changed"
	if b.Current()[0].ID != "1" {
		t.Fatal("Current returned the stored slice")
	}
}

func TestEmptyBoardSerializesAsArray(t *testing.T) {
	raw, err := json.Marshal(NewBoard().Current())
	if err != nil {
		t.Fatal(err)
	}
	if string(raw) != "[]" {
		t.Fatalf("got %s, want []", raw)
	}
	raw, _ = json.Marshal(Snapshot(nil).Clone())
	if string(raw) != "[]" {
		t.Fatalf("nil clone serialized as %s", raw)
	}
}
