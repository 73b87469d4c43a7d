package analytics

import (
	"griefpulse/internal/grievance"
	"griefpulse/pkg/contracts/domain"
)

var (
	inProgressStatuses = foldSet(domain.StatusInProgress)
	completedStatuses  = foldSet(domain.StatusCompleted, domain.StatusInadmissible)
	untreatedStatuses  = foldSet(domain.StatusUntreated)
)

func foldSet(values ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[grievance.Fold(v)] = struct{}{}
	}
	return set
}

// StatusKPIs splits the records into the dashboard's status buckets.
// Statuses are compared without regard to case or accents; anything that
// matches no bucket is counted in Other.
func StatusKPIs(records []domain.Grievance) domain.StatusKPIs {
	kpis := domain.StatusKPIs{Total: len(records)}
	for _, g := range records {
		switch StatusBucket(g.Status) {
		case BucketInProgress:
			kpis.InProgress++
		case BucketCompleted:
			kpis.Completed++
		case BucketUntreated:
			kpis.Untreated++
		default:
			kpis.Other++
		}
	}
	return kpis
}

// Bucket is a KPI status group
type Bucket int

const (
	BucketOther Bucket = iota
	BucketInProgress
	BucketCompleted
	BucketUntreated
)

// StatusBucket classifies a raw status label
func StatusBucket(status string) Bucket {
	key := grievance.Fold(status)
	if _, ok := inProgressStatuses[key]; ok {
		return BucketInProgress
	}
	if _, ok := completedStatuses[key]; ok {
		return BucketCompleted
	}
	if _, ok := untreatedStatuses[key]; ok {
		return BucketUntreated
	}
	return BucketOther
}
