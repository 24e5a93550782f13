// Package timeutils formats and parses the PDF date string syntax
// ("D:YYYYMMDDHHmmSSOHH'mm'") used by /CreationDate, /ModDate and a
// signature dictionary's /M entry.
package timeutils

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"time"
)

// FormatPdfTime renders t as a PDF date string in t's own zone.
func FormatPdfTime(in time.Time) string {
	offset := in.Format("-07:00")
	offHours, _ := strconv.ParseInt(offset[1:3], 10, 32)
	offMinutes, _ := strconv.ParseInt(offset[4:6], 10, 32)
	sign := offset[0]
	return fmt.Sprintf("D:%.4d%.2d%.2d%.2d%.2d%.2d%c%.2d'%.2d'",
		int64(in.Year()), int64(in.Month()), int64(in.Day()),
		int64(in.Hour()), int64(in.Minute()), int64(in.Second()),
		sign, offHours, offMinutes)
}

var pdfTimeRegexp = regexp.MustCompile(`\s*D\s*:\s*(\d{4})(\d{2})(\d{2})(\d{2})(\d{2})(\d{2})?([+\-Z])?(\d{2})?'?(\d{2})?`)

// ParsePdfTime parses a PDF date string, tolerating a missing leading
// "D:" prefix as some producers omit it.
func ParsePdfTime(pdfTime string) (time.Time, error) {
	groups := pdfTimeRegexp.FindAllStringSubmatch(pdfTime, 1)
	if len(groups) < 1 {
		if len(pdfTime) > 0 && pdfTime[0] != 'D' {
			return ParsePdfTime(fmt.Sprintf("D:%s", pdfTime))
		}
		return time.Time{}, fmt.Errorf("invalid date string (%s)", pdfTime)
	}
	if len(groups[0]) != 10 {
		return time.Time{}, errors.New("invalid regexp group match length != 10")
	}

	g := groups[0]
	year, _ := strconv.ParseInt(g[1], 10, 32)
	month, _ := strconv.ParseInt(g[2], 10, 32)
	day, _ := strconv.ParseInt(g[3], 10, 32)
	hour, _ := strconv.ParseInt(g[4], 10, 32)
	minute, _ := strconv.ParseInt(g[5], 10, 32)
	second, _ := strconv.ParseInt(g[6], 10, 32)

	var sign byte = '+'
	if len(g[7]) > 0 {
		switch g[7] {
		case "-":
			sign = '-'
		case "Z":
			sign = 'Z'
		}
	}
	var offHours, offMinutes int64
	if len(g[8]) > 0 {
		offHours, _ = strconv.ParseInt(g[8], 10, 32)
	}
	if len(g[9]) > 0 {
		offMinutes, _ = strconv.ParseInt(g[9], 10, 32)
	}

	offsetSeconds := int(offHours*60*60 + offMinutes*60)
	switch sign {
	case '-':
		offsetSeconds = -offsetSeconds
	case 'Z':
		offsetSeconds = 0
	}
	zoneName := fmt.Sprintf("UTC%c%.2d%.2d", sign, offHours, offMinutes)
	zone := time.FixedZone(zoneName, offsetSeconds)

	return time.Date(int(year), time.Month(month), int(day), int(hour), int(minute), int(second), 0, zone), nil
}
