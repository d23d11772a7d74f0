package rest

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sgics/sgics/internal/logging"
)

type migrationNode struct {
	App          string     `json:"app"`
	Name         string     `json:"name"`
	Kind         string     `json:"kind"`
	Dependencies []string   `json:"dependencies"`
	Note         string     `json:"note,omitempty"`
	Applied      bool       `json:"applied"`
	AppliedAt    *time.Time `json:"applied_at,omitempty"`
}

type migrationPlan struct {
	Nodes   []migrationNode `json:"nodes"`
	Pending int             `json:"pending"`
	Orphans []string        `json:"orphans"`
}

type migrationHandler struct {
	status MigrationStatus
	logger logging.Logger
}

// Plan lists the app migrations in apply order with their ledger state.
func (h *migrationHandler) Plan(c *gin.Context) {
	if h.status == nil {
		c.JSON(http.StatusServiceUnavailable, errorBody("migration status unavailable"))
		return
	}

	st, err := h.status(c.Request.Context())
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	out := migrationPlan{
		Nodes:   make([]migrationNode, 0, len(st.Nodes)),
		Pending: len(st.Pending()),
		Orphans: make([]string, 0, len(st.Orphans)),
	}
	for _, n := range st.Nodes {
		m := n.Migration
		deps := make([]string, 0, len(m.Dependencies))
		for _, d := range m.Dependencies {
			deps = append(deps, d.String())
		}
		node := migrationNode{
			App:          m.App,
			Name:         m.Name,
			Kind:         m.Kind.String(),
			Dependencies: deps,
			Note:         m.Note,
			Applied:      n.Applied,
		}
		if n.Applied {
			at := n.AppliedAt
			node.AppliedAt = &at
		}
		out.Nodes = append(out.Nodes, node)
	}
	for _, o := range st.Orphans {
		out.Orphans = append(out.Orphans, o.String())
	}

	c.JSON(http.StatusOK, out)
}
