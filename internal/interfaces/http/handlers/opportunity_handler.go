package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/OpportunityRadar/internal/application/snapshot"
	"github.com/turtacn/OpportunityRadar/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/OpportunityRadar/pkg/types/opportunity"
)

// SnapshotService is the read side of the snapshot store.
type SnapshotService interface {
	Current() (*snapshot.Snapshot, error)
	Find(category string) (opportunity.CategoryOpportunity, error)
}

// ListResponse is the body of GET /api/v1/opportunities.
type ListResponse struct {
	Opportunities opportunity.Opportunities `json:"opportunities"`
	Count         int                       `json:"count"`
	Total         int                       `json:"total"`
	LoadedAt      time.Time                 `json:"loaded_at"`
	Source        string                    `json:"source"`
}

// OpportunityHandler serves the ranked opportunity table.
type OpportunityHandler struct {
	store        SnapshotService
	logger       logging.Logger
	defaultLimit int
	maxLimit     int
}

// NewOpportunityHandler returns a handler over store.
func NewOpportunityHandler(store SnapshotService, logger logging.Logger, defaultLimit, maxLimit int) *OpportunityHandler {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &OpportunityHandler{
		store:        store,
		logger:       logger.Named("opportunity_handler"),
		defaultLimit: defaultLimit,
		maxLimit:     maxLimit,
	}
}

// List handles GET /api/v1/opportunities?limit=N: the top N categories by
// score, in artifact order.
func (h *OpportunityHandler) List(c *gin.Context) {
	limit, err := parseLimit(c, h.defaultLimit, h.maxLimit)
	if err != nil {
		respondError(c, err)
		return
	}
	snap, err := h.store.Current()
	if err != nil {
		respondError(c, err)
		return
	}
	rows := snap.Opportunities.Top(limit)
	if rows == nil {
		rows = opportunity.Opportunities{}
	}
	c.JSON(http.StatusOK, ListResponse{
		Opportunities: rows,
		Count:         len(rows),
		Total:         len(snap.Opportunities),
		LoadedAt:      snap.LoadedAt,
		Source:        snap.Source,
	})
}

// Get handles GET /api/v1/opportunities/:category.
func (h *OpportunityHandler) Get(c *gin.Context) {
	row, err := h.store.Find(c.Param("category"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, row)
}
