package listing

import "testing"

func TestFileHashDeterministic(t *testing.T) {
	t.Parallel()
	a := FileHash("file-1", "2026-08-01T10:00:00Z")
	b := FileHash("file-1", "2026-08-01T10:00:00Z")
	if a != b {
		t.Fatalf("same inputs gave different hashes: %s / %s", a, b)
	}
	if len(a) != 32 {
		t.Fatalf("hash length = %d, want 32", len(a))
	}
}

func TestFileHashChangesWithModifiedTime(t *testing.T) {
	t.Parallel()
	a := FileHash("file-1", "2026-08-01T10:00:00Z")
	b := FileHash("file-1", "2026-08-02T10:00:00Z")
	if a == b {
		t.Fatal("touched file produced the same hash")
	}
}

func TestRowKeyNormalizesCaseAndSpace(t *testing.T) {
	t.Parallel()
	a := RowKey(&RawListing{Name: "Joe's Diner", Address: "1 Main St", City: "Austin", State: "TX", Category: "Restaurant"})
	b := RowKey(&RawListing{Name: "  JOE'S DINER ", Address: "1 Main St", City: "austin", State: "tx", Category: " restaurant"})
	if a != b {
		t.Fatal("case/whitespace variants of the same listing got different row keys")
	}
}

func TestRowKeyDistinguishesListings(t *testing.T) {
	t.Parallel()
	a := RowKey(&RawListing{Name: "Joe's Diner", City: "Austin", State: "TX"})
	b := RowKey(&RawListing{Name: "Joe's Diner", City: "Dallas", State: "TX"})
	if a == b {
		t.Fatal("different cities collapsed to one row key")
	}
}
