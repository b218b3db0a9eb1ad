package domain

import (
	"fmt"
	"time"
)

// DayFileExt is the extension of every persisted day file.
const DayFileExt = ".jsonl.gz"

// DayFilePath returns the relative path of the day file for kind on day:
// {pipeline}/{YYYY-MM-DD}-{pipeline}.jsonl.gz
func DayFilePath(kind EntityKind, day time.Time) string {
	return fmt.Sprintf("%s/%s-%s%s", kind, day.Format(DateLayout), kind, DayFileExt)
}
