package chart_test

import (
	"time"

	"github.com/couchcryptid/neo-stream-service/internal/domain"
)

func recordOn(year, month, day int, miss float64) domain.NeoRecord {
	date := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	return domain.NeoRecord{CloseApproachDate: date.Format(domain.DateLayout), MissDistanceAu: miss}
}
