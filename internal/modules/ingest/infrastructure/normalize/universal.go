package normalize

import (
	"strconv"
	"strings"

	"ListingHub/internal/modules/ingest/domain/listing"
)

// headerAliases maps the column spellings contributors actually use onto the
// canonical field names. Lookup keys are lowercased, trimmed headers.
var headerAliases = map[string]string{
	"name":            "name",
	"business name":   "name",
	"business_name":   "name",
	"title":           "name",
	"address":         "address",
	"full address":    "address",
	"full_address":    "address",
	"website":         "website",
	"site":            "website",
	"url":             "website",
	"phone":           "phone_number",
	"phone number":    "phone_number",
	"phone_number":    "phone_number",
	"reviews":         "reviews_count",
	"reviews count":   "reviews_count",
	"reviews_count":   "reviews_count",
	"review count":    "reviews_count",
	"rating":          "reviews_average",
	"reviews_average": "reviews_average",
	"average rating":  "reviews_average",
	"stars":           "reviews_average",
	"category":        "category",
	"main category":   "category",
	"main_category":   "category",
	"subcategory":     "subcategory",
	"sub category":    "subcategory",
	"sub_category":    "subcategory",
	"city":            "city",
	"town":            "city",
	"state":           "state",
	"province":        "state",
	"area":            "area",
	"region":          "area",
	"neighborhood":    "area",
}

// Universal is the canonical listing.NormalizeFunc: pure, deterministic, no
// side effects. Unknown columns are dropped; validation is deliberately not
// done here, raw ingestion keeps the row and cleaning happens downstream.
func Universal(raw map[string]string, lin listing.Lineage) listing.RawListing {
	fields := make(map[string]string, len(raw))
	for k, v := range raw {
		canon, ok := headerAliases[strings.ToLower(strings.TrimSpace(k))]
		if !ok {
			continue
		}
		if _, exists := fields[canon]; exists {
			continue
		}
		fields[canon] = cleanValue(v)
	}

	return listing.RawListing{
		Name:           fields["name"],
		Address:        fields["address"],
		Website:        fields["website"],
		PhoneNumber:    fields["phone_number"],
		ReviewsCount:   parseCount(fields["reviews_count"]),
		ReviewsAverage: parseRating(fields["reviews_average"]),
		Category:       fields["category"],
		Subcategory:    fields["subcategory"],
		City:           fields["city"],
		State:          fields["state"],
		Area:           fields["area"],

		DriveFileId:       lin.FileID,
		DriveFileName:     lin.FileName,
		DriveFolderId:     lin.FolderID,
		DriveFolderName:   lin.FolderName,
		DrivePath:         lin.Path,
		DriveUploadedTime: lin.ModifiedTime,
		Source:            listing.SourceGoogleDrive,
		EtlVersionTag:     listing.EtlVersion,
		TaskId:            lin.TaskID,
		FileHash:          lin.FileHash,
	}
}

func cleanValue(v string) string {
	v = strings.TrimSpace(v)
	switch strings.ToLower(v) {
	case "nan", "none", "null", "n/a":
		return ""
	}
	return v
}

func parseCount(v string) int64 {
	v = strings.ReplaceAll(strings.TrimSpace(v), ",", "")
	v = strings.TrimSuffix(v, ".0")
	if v == "" {
		return 0
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

func parseRating(v string) float64 {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f < 0 || f > 5 {
		return 0
	}
	return f
}
