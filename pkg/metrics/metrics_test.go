package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"k8s.io/klog/v2"

	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
)

var _ = ginkgo.Describe("Metrics endpoint", func() {
	ginkgo.It("changes the log verbosity through PUT", func() {
		mux := newMetricsMux(true)
		req := httptest.NewRequest(http.MethodPut, "/debug/flags/v", strings.NewReader("5"))
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)
		gomega.Expect(rec.Code).To(gomega.Equal(http.StatusOK))
		gomega.Expect(rec.Body.String()).To(gomega.ContainSubstring("successfully set klog.logging.verbosity to 5"))
		gomega.Expect(klog.V(5).Enabled()).To(gomega.BeTrue())
		_, err := klogSetter("0")
		gomega.Expect(err).NotTo(gomega.HaveOccurred())
	})

	ginkgo.It("rejects a malformed verbosity", func() {
		rec := httptest.NewRecorder()
		stringFlagPutHandler(klogSetter).ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/debug/flags/v", strings.NewReader("high")))
		gomega.Expect(rec.Code).To(gomega.Equal(http.StatusBadRequest))
	})

	ginkgo.It("only accepts PUT on the verbosity setter", func() {
		rec := httptest.NewRecorder()
		stringFlagPutHandler(klogSetter).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/debug/flags/v", nil))
		gomega.Expect(rec.Code).To(gomega.Equal(http.StatusNotAcceptable))
	})

	ginkgo.It("does not expose profiling unless enabled", func() {
		rec := httptest.NewRecorder()
		newMetricsMux(false).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/debug/pprof/", nil))
		gomega.Expect(rec.Code).To(gomega.Equal(http.StatusNotFound))
	})

	ginkgo.It("serves the registered metrics", func() {
		RegisterDBMetrics(nil, nil)
		RegisterDriverMetrics()
		MetricTransactions.WithLabelValues(TransactionCommitted).Inc()
		MetricPortBindings.WithLabelValues(BindBound).Inc()

		rec := httptest.NewRecorder()
		newMetricsMux(false).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
		gomega.Expect(rec.Code).To(gomega.Equal(http.StatusOK))
		body := rec.Body.String()
		gomega.Expect(body).To(gomega.ContainSubstring(`ovn_networking_db_transactions_total{result="committed"}`))
		gomega.Expect(body).To(gomega.ContainSubstring(`ovn_networking_driver_port_bindings_total{outcome="bound"}`))
		gomega.Expect(body).To(gomega.ContainSubstring("ovn_networking_driver_build_info"))
	})
})

var _ = ginkgo.Describe("Counters", func() {
	ginkgo.It("counts transactions by result", func() {
		before := testutil.ToFloat64(MetricTransactions.WithLabelValues(TransactionAborted))
		MetricTransactions.WithLabelValues(TransactionAborted).Inc()
		gomega.Expect(testutil.ToFloat64(MetricTransactions.WithLabelValues(TransactionAborted))).To(gomega.Equal(before + 1))
	})

	ginkgo.It("counts staged commands by kind", func() {
		before := testutil.ToFloat64(MetricCommandsStaged.WithLabelValues("AddLSwitch"))
		MetricCommandsStaged.WithLabelValues("AddLSwitch").Add(2)
		gomega.Expect(testutil.ToFloat64(MetricCommandsStaged.WithLabelValues("AddLSwitch"))).To(gomega.Equal(before + 2))
	})
})
