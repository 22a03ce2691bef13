package session

import (
	"github.com/prometheus/client_golang/prometheus/testutil"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/zombor/hospi-scanner/internal/scanning"
)

var _ = Describe("MetricsRecorder", func() {
	var controller *Controller

	BeforeEach(func() {
		controller = NewControllerWithDeps(InterpreterFunc(scanning.Parse), newSequenceIDGenerator("session"))
		controller.Subscribe(MetricsRecorder{})
	})

	It("should count scan outcomes", func() {
		displayed := testutil.ToFloat64(scansTotal.WithLabelValues("displayed"))
		rejected := testutil.ToFloat64(scansTotal.WithLabelValues("rejected"))

		controller.SubmitScannedText("nope")
		controller.SubmitScannedText(plainPayload)

		Expect(testutil.ToFloat64(scansTotal.WithLabelValues("rejected"))).To(Equal(rejected + 1))
		Expect(testutil.ToFloat64(scansTotal.WithLabelValues("displayed"))).To(Equal(displayed + 1))
	})

	It("should count verification results", func() {
		success := testutil.ToFloat64(verificationsTotal.WithLabelValues("success"))
		mismatch := testutil.ToFloat64(verificationsTotal.WithLabelValues("mismatch"))

		controller.SubmitScannedText(pinPayload)
		controller.VerifyPin("000000")
		controller.VerifyPin("000001")
		controller.VerifyPin("123456")

		Expect(testutil.ToFloat64(verificationsTotal.WithLabelValues("mismatch"))).To(Equal(mismatch + 2))
		Expect(testutil.ToFloat64(verificationsTotal.WithLabelValues("success"))).To(Equal(success + 1))
	})

	It("should count errors", func() {
		before := testutil.ToFloat64(sessionErrorsTotal)
		controller.ReportError("camera failed")
		Expect(testutil.ToFloat64(sessionErrorsTotal)).To(Equal(before + 1))
	})
})
