package ewaybill

import (
	"fmt"
	"time"
)

// Date layouts returned by the two portals.
const (
	IRNDateLayout    = "2006-01-02 15:04:05"
	DirectDateLayout = "02/01/2006 03:04:05 PM"
)

// IndiaStandardTime is UTC+05:30; India observes no daylight saving.
var IndiaStandardTime = time.FixedZone("IST", 5*3600+30*60)

// IndianTimeToUTC parses a portal timestamp expressed in IST and returns it
// in UTC. An empty value yields nil.
func IndianTimeToUTC(value, layout string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	t, err := time.ParseInLocation(layout, value, IndiaStandardTime)
	if err != nil {
		return nil, fmt.Errorf("parse portal date %q: %w", value, err)
	}
	utc := t.UTC()
	return &utc, nil
}
