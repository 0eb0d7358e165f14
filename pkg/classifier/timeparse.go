package classifier

import (
	"fmt"
	"strings"
	"time"
)

const rfc1123NoZone = "Mon, 02 Jan 2006 15:04:05"

var zones = map[string]*time.Location{
	"GMT": time.UTC,
	"UTC": time.UTC,
	"UT":  time.UTC,
	"Z":   time.UTC,
	"EST": time.FixedZone("EST", -5*60*60),
	"EDT": time.FixedZone("EDT", -4*60*60),
}

// ParseResponseTime converte um header Date RFC 1123
// ("Mon, 01 Jan 2023 12:00:00 GMT") em epoch segundos.
// Zonas desconhecidas ou ausentes são tratadas como UTC.
func ParseResponseTime(s string) (int64, error) {
	fields := strings.Fields(s)

	var zone string
	switch len(fields) {
	case 5:
	case 6:
		zone = strings.ToUpper(fields[5])
		fields = fields[:5]
	default:
		return 0, fmt.Errorf("classifier: invalid response time %q", s)
	}

	loc, ok := zones[zone]
	if !ok {
		loc = time.UTC
	}

	t, err := time.ParseInLocation(rfc1123NoZone, strings.Join(fields, " "), loc)
	if err != nil {
		return 0, fmt.Errorf("classifier: invalid response time %q: %w", s, err)
	}
	return t.Unix(), nil
}
