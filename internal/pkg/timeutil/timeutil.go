package timeutil

import "time"

const DateTimeLayout = "2006-01-02 15:04:05"

func NowUnix() int64 {
	return time.Now().Unix()
}

// ParseDateTime parses a wall-clock datetime in the given location and
// returns unix seconds.
func ParseDateTime(value string, loc *time.Location) (int64, error) {
	t, err := time.ParseInLocation(DateTimeLayout, value, loc)
	if err != nil {
		return 0, err
	}
	return t.Unix(), nil
}
