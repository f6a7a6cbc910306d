package repository

import (
	"fmt"
	"time"
)

// sqliteの列型宣言が取れない場合（RETURNING句など）は時刻が文字列で返るため、
// 両方を受け付ける。
var timeLayouts = []string{
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02T15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999 -0700 MST",
}

type timeScanner struct {
	dst *time.Time
}

func scanTime(dst *time.Time) *timeScanner {
	return &timeScanner{dst: dst}
}

// Scan はsql.Scannerを実装する。
func (s *timeScanner) Scan(src any) error {
	switch v := src.(type) {
	case time.Time:
		*s.dst = v.UTC()
		return nil
	case string:
		return s.parse(v)
	case []byte:
		return s.parse(string(v))
	case nil:
		*s.dst = time.Time{}
		return nil
	default:
		return fmt.Errorf("unsupported time value type %T", src)
	}
}

func (s *timeScanner) parse(v string) error {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			*s.dst = t.UTC()
			return nil
		}
	}
	return fmt.Errorf("cannot parse time value %q", v)
}
