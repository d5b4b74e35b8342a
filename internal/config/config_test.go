package config_test

import (
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/eventscore/internal/config"
	"github.com/okian/eventscore/internal/domain/model"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New()

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.PoolWidth, convey.ShouldEqual, 10)
			convey.So(cfg.InterBatchPause(), convey.ShouldEqual, 200*time.Millisecond)
			convey.So(cfg.TaskTimeout(), convey.ShouldEqual, time.Duration(0))
			convey.So(cfg.StoreDriver, convey.ShouldEqual, config.StoreMemory)
			convey.So(cfg.Criteria, convey.ShouldResemble, model.AllCriteria())
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})

		convey.Convey("Then backoff bounds convert to durations", func() {
			base, maxWait := cfg.RateLimitBackoff()
			convey.So(base, convey.ShouldEqual, time.Second)
			convey.So(maxWait, convey.ShouldEqual, 30*time.Second)
		})
	})
}
