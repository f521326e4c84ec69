package dto

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/pinguard/pinguard/internal/model"
)

func TestTimestamp_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    time.Time
		wantErr bool
	}{
		{"rfc3339 utc", `"2024-03-01T10:00:00Z"`, time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC), false},
		{"rfc3339 offset normalized to utc", `"2024-03-01T12:00:00+02:00"`, time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC), false},
		{"date only", `"2024-03-01"`, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), false},
		{"null", `null`, time.Time{}, false},
		{"garbage", `"yesterday"`, time.Time{}, true},
		{"number", `1700000000`, time.Time{}, true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var ts Timestamp
			err := json.Unmarshal([]byte(tt.input), &ts)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && !ts.Time.Equal(tt.want) {
				t.Errorf("time = %v, want %v", ts.Time, tt.want)
			}
		})
	}
}

func TestRegisterRequest_Decode(t *testing.T) {
	t.Parallel()

	body := `{"pinCode":"4711","doorIds":["main","spa"],"restrictions":[{"validFrom":"2024-01-01"},{"validTo":"2024-06-30T23:59:59Z"}]}`

	var req RegisterRequest
	if err := json.Unmarshal([]byte(body), &req); err != nil {
		t.Fatalf("decode: %v", err)
	}

	restrictions := ToRestrictions(req.Restrictions)
	if len(restrictions) != 2 {
		t.Fatalf("len(restrictions) = %d, want 2", len(restrictions))
	}
	if restrictions[0].ValidFrom == nil || restrictions[0].ValidTo != nil {
		t.Errorf("first window = %+v, want only validFrom", restrictions[0])
	}
	if restrictions[1].ValidFrom != nil || restrictions[1].ValidTo == nil {
		t.Errorf("second window = %+v, want only validTo", restrictions[1])
	}
}

func TestToMutationResponse(t *testing.T) {
	t.Parallel()

	reg := &model.Registration{PinCode: "4711", DoorIDs: nil}
	resp := ToMutationResponse(reg, "registered")

	if resp.Message != "PIN code 4711 registered successfully." {
		t.Errorf("message = %q", resp.Message)
	}
	if resp.DoorIDs == nil || resp.Restrictions == nil {
		t.Error("slices must be non-nil so they encode as []")
	}
}
