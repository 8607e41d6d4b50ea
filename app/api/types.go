package api

import (
	"github.com/ddm-research/donation-monitor/app/database"
	"github.com/ddm-research/donation-monitor/app/overview"
	"github.com/ddm-research/donation-monitor/app/study"
)

type Handler struct {
	runs      database.RunRepositoryInterface
	snapshots *overview.SnapshotStore
	filter    *overview.Filter
	study     *study.Study
	plotsDir  string
	plots     map[string]bool
}
