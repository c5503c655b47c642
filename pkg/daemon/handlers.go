package daemon

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/charlie0129/battwatch/pkg/config"
	"github.com/charlie0129/battwatch/pkg/events"
	"github.com/charlie0129/battwatch/pkg/metrics"
	"github.com/charlie0129/battwatch/pkg/types"
	"github.com/charlie0129/battwatch/pkg/version"
)

func (s *server) currentMetrics() types.Metrics {
	snap := s.metrics.Snapshot()
	return types.Metrics{
		Percent:      snap.Percent,
		Wattage:      snap.Wattage,
		WattageState: string(metrics.ClassifyWattage(snap.Wattage)),
		Events:       s.listener.Delivered(),
	}
}

func (s *server) getMetrics(c *gin.Context) {
	c.IndentedJSON(http.StatusOK, s.currentMetrics())
}

func (s *server) getPercent(c *gin.Context) {
	c.IndentedJSON(http.StatusOK, s.metrics.Percent.Get())
}

func (s *server) getWattage(c *gin.Context) {
	c.IndentedJSON(http.StatusOK, s.metrics.Wattage.Get())
}

func (s *server) getConfig(c *gin.Context) {
	fc, err := config.NewRawFileConfigFromConfig(s.conf)
	if err != nil {
		_ = c.AbortWithError(http.StatusInternalServerError, err)
		return
	}
	c.IndentedJSON(http.StatusOK, fc)
}

func getVersion(c *gin.Context) {
	c.IndentedJSON(http.StatusOK, version.Version)
}

// streamEvents sends the current values, then every change, as server-sent events.
func (s *server) streamEvents(c *gin.Context) {
	ch := s.hub.Subscribe()
	defer s.hub.Unsubscribe(ch)

	snap := s.metrics.Snapshot()
	initial := []events.Event{
		mustEvent(events.BatteryPercent, "percent", snap.Percent),
		mustEvent(events.BatteryWattage, "wattage", snap.Wattage),
	}

	ctx := c.Request.Context()
	c.Stream(func(_ io.Writer) bool {
		if len(initial) > 0 {
			for _, ev := range initial {
				c.SSEvent(ev.Name, string(ev.Data))
			}
			initial = nil
			return true
		}

		select {
		case <-ctx.Done():
			return false
		case ev, ok := <-ch:
			if !ok {
				return false
			}
			c.SSEvent(ev.Name, string(ev.Data))
			return true
		}
	})
}
