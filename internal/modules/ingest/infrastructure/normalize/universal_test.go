package normalize

import (
	"testing"

	"ListingHub/internal/modules/ingest/domain/listing"
)

func TestUniversalMapsHeaderAliases(t *testing.T) {
	t.Parallel()
	raw := map[string]string{
		"Business Name": "Joe's Diner",
		"Full Address":  "1 Main St",
		"Phone":         "512-555-0101",
		"Stars":         "4.5",
		"Review Count":  "1,234",
		"Town":          "Austin",
		"Province":      "TX",
		"Main Category": "Restaurant",
	}
	got := Universal(raw, listing.Lineage{})

	if got.Name != "Joe's Diner" {
		t.Errorf("Name = %q", got.Name)
	}
	if got.Address != "1 Main St" {
		t.Errorf("Address = %q", got.Address)
	}
	if got.PhoneNumber != "512-555-0101" {
		t.Errorf("PhoneNumber = %q", got.PhoneNumber)
	}
	if got.ReviewsAverage != 4.5 {
		t.Errorf("ReviewsAverage = %v", got.ReviewsAverage)
	}
	if got.ReviewsCount != 1234 {
		t.Errorf("ReviewsCount = %d", got.ReviewsCount)
	}
	if got.City != "Austin" || got.State != "TX" || got.Category != "Restaurant" {
		t.Errorf("location fields = %q/%q/%q", got.City, got.State, got.Category)
	}
}

func TestUniversalDropsUnknownColumnsAndPlaceholders(t *testing.T) {
	t.Parallel()
	raw := map[string]string{
		"name":           "Joe's Diner",
		"website":        "NaN",
		"address":        "none",
		"favorite_color": "blue",
		"internal_rowid": "99",
	}
	got := Universal(raw, listing.Lineage{})
	if got.Website != "" {
		t.Errorf("placeholder website kept: %q", got.Website)
	}
	if got.Address != "" {
		t.Errorf("placeholder address kept: %q", got.Address)
	}
}

func TestUniversalParsesMessyCounts(t *testing.T) {
	t.Parallel()
	cases := []struct {
		in   string
		want int64
	}{
		{"1,234", 1234},
		{"42.0", 42},
		{"", 0},
		{"n/a", 0},
		{"-5", 0},
		{"abc", 0},
	}
	for _, tc := range cases {
		got := Universal(map[string]string{"reviews": tc.in}, listing.Lineage{})
		if got.ReviewsCount != tc.want {
			t.Errorf("reviews %q parsed to %d, want %d", tc.in, got.ReviewsCount, tc.want)
		}
	}
}

func TestUniversalBoundsRating(t *testing.T) {
	t.Parallel()
	if got := Universal(map[string]string{"rating": "7.5"}, listing.Lineage{}); got.ReviewsAverage != 0 {
		t.Errorf("out-of-range rating kept: %v", got.ReviewsAverage)
	}
	if got := Universal(map[string]string{"rating": "3.8"}, listing.Lineage{}); got.ReviewsAverage != 3.8 {
		t.Errorf("valid rating = %v, want 3.8", got.ReviewsAverage)
	}
}

func TestUniversalStampsLineage(t *testing.T) {
	t.Parallel()
	lin := listing.Lineage{
		FileID:       "f-1",
		FileName:     "austin.csv",
		FolderID:     "folder-9",
		ModifiedTime: "2026-08-01T10:00:00Z",
		FileHash:     "abc123",
		TaskID:       "task-7",
	}
	got := Universal(map[string]string{"name": "Joe's Diner"}, lin)

	if got.DriveFileId != "f-1" || got.DriveFileName != "austin.csv" || got.DriveFolderId != "folder-9" {
		t.Errorf("file lineage = %q/%q/%q", got.DriveFileId, got.DriveFileName, got.DriveFolderId)
	}
	if got.FileHash != "abc123" || got.TaskId != "task-7" {
		t.Errorf("hash/task lineage = %q/%q", got.FileHash, got.TaskId)
	}
	if got.Source != listing.SourceGoogleDrive {
		t.Errorf("Source = %q", got.Source)
	}
	if got.EtlVersionTag != listing.EtlVersion {
		t.Errorf("EtlVersionTag = %q", got.EtlVersionTag)
	}
}
