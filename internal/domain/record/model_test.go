package record

import (
	"reflect"
	"testing"
)

func TestNewBatch_RejectsBadFieldNames(t *testing.T) {
	if _, err := NewBatch("id", ""); err == nil {
		t.Fatalf("expected error for empty field name")
	}
	if _, err := NewBatch("id", "id"); err == nil {
		t.Fatalf("expected error for duplicate field name")
	}
}

func TestBatch_AppendEnforcesUniformShape(t *testing.T) {
	b := MustBatch("understat_id", "player_name")

	if err := b.Append(Record{"understat_id": int64(1), "player_name": "A"}); err != nil {
		t.Fatalf("append valid record: %v", err)
	}

	tests := []struct {
		name string
		rec  Record
	}{
		{name: "missing field", rec: Record{"understat_id": int64(2)}},
		{name: "unknown field", rec: Record{"understat_id": int64(2), "team": "X"}},
		{name: "extra field", rec: Record{"understat_id": int64(2), "player_name": "B", "team": "X"}},
		{name: "non scalar value", rec: Record{"understat_id": []int64{2}, "player_name": "B"}},
		{name: "unsigned value", rec: Record{"understat_id": uint64(2), "player_name": "B"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if err := b.Append(tc.rec); err == nil {
				t.Fatalf("expected append error")
			}
		})
	}

	if b.Len() != 1 {
		t.Fatalf("expected rejected records to be dropped, len=%d", b.Len())
	}
}

func TestBatch_ProjectKeepsOrderAndDropsExtras(t *testing.T) {
	b := MustBatch("extra", "b", "a")
	for _, rec := range []Record{
		{"extra": "x1", "b": int64(1), "a": "first"},
		{"extra": "x2", "b": int64(2), "a": "second"},
	} {
		if err := b.Append(rec); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	projected := b.Project([]string{"a", "b", "missing"})

	if !reflect.DeepEqual(projected.Fields(), []string{"a", "b"}) {
		t.Fatalf("unexpected projected fields: %v", projected.Fields())
	}
	want := [][]any{{"first", int64(1)}, {"second", int64(2)}}
	if !reflect.DeepEqual(projected.Rows(), want) {
		t.Fatalf("unexpected projected rows: %v", projected.Rows())
	}
	if b.Len() != 2 || !b.HasField("extra") {
		t.Fatalf("source batch must stay untouched")
	}
}

func TestBatch_MissingFieldsSorted(t *testing.T) {
	b := MustBatch("game_id")
	got := b.MissingFields([]string{"xg", "game_id", "assists"})
	if !reflect.DeepEqual(got, []string{"assists", "xg"}) {
		t.Fatalf("unexpected missing fields: %v", got)
	}
}

func TestBatch_AppendWidensNumbers(t *testing.T) {
	b := MustBatch("goals", "minutes", "xg")
	if err := b.Append(Record{"goals": 1, "minutes": int32(90), "xg": float32(0.5)}); err != nil {
		t.Fatalf("append: %v", err)
	}

	got := b.Records()[0]
	if got["goals"] != int64(1) || got["minutes"] != int64(90) || got["xg"] != float64(0.5) {
		t.Fatalf("expected widened values, got %#v", got)
	}
}

func TestBatch_AppendCopiesRecord(t *testing.T) {
	b := MustBatch("understat_id", "player_name")
	rec := Record{"understat_id": int64(1), "player_name": "Bukayo Saka"}
	if err := b.Append(rec); err != nil {
		t.Fatalf("append: %v", err)
	}

	rec["player_name"] = ""
	rec["team"] = "Arsenal"

	stored := b.Records()[0]
	if len(stored) != 2 || stored["player_name"] != "Bukayo Saka" {
		t.Fatalf("stored record changed with the caller's map: %#v", stored)
	}
}
