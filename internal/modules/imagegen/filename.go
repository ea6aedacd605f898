package imagegen

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	types "github.com/yungbote/btcmood-backend/internal/domain/imagegen"
)

// ObjectKey builds "{category}-{DD-MON-YYYY}-{unix-epoch}-{link}.png", where
// link is the first eight hex digits of the ImageLink id. The epoch orders
// reruns; the link part keeps two reruns within the same second apart.
func ObjectKey(pt types.PromptType, targetDate, now time.Time, linkID uuid.UUID) string {
	day := strings.ToUpper(targetDate.Format("02-Jan-2006"))
	return fmt.Sprintf("%s-%s-%d-%s.png", pt, day, now.UTC().Unix(), linkID.String()[:8])
}

// calendarDay drops the clock so prompt_date stores the target's local date.
func calendarDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
