package services

import (
	"time"

	"github.com/cppla/quitmate/store"
)

// Set bundles the services behind the HTTP API.
type Set struct {
	Calendar     *Calendar
	Profiles     *ProfileService
	Checkins     *CheckinService
	Badges       *BadgeService
	Certificates *CertificateService
	Stats        *StatsService
	Counters     *CounterService
}

// NewSet wires every service on one store and calendar. notifier and cache may be nil.
func NewSet(st store.Store, cal *Calendar, notifier Notifier, cache Cache, makeUpQuota int, statsTTL time.Duration) *Set {
	badges := NewBadgeService(st, cal, notifier, cache)
	checkins := NewCheckinService(st, cal, badges, notifier, cache, makeUpQuota)
	return &Set{
		Calendar:     cal,
		Profiles:     NewProfileService(st, cal, cache),
		Checkins:     checkins,
		Badges:       badges,
		Certificates: NewCertificateService(st, cal, notifier),
		Stats:        NewStatsService(st, cal, checkins, cache, statsTTL),
		Counters:     NewCounterService(st, cal, cache),
	}
}
