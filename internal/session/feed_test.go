package session

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/zombor/hospi-scanner/internal/scanning"
)

// mockReader yields queued payloads, then readErr or io.EOF
type mockReader struct {
	payloads []string
	readErr  error
}

func (m *mockReader) Read(ctx context.Context) (string, error) {
	if len(m.payloads) == 0 {
		if m.readErr != nil {
			return "", m.readErr
		}
		return "", io.EOF
	}
	payload := m.payloads[0]
	m.payloads = m.payloads[1:]
	return payload, nil
}

func (m *mockReader) Close() error {
	return nil
}

var _ = Describe("Feed", func() {
	var (
		ctx        context.Context
		cancel     context.CancelFunc
		controller *Controller
		reader     scanning.Reader
		err        error
	)

	BeforeEach(func() {
		ctx, cancel = context.WithTimeout(context.Background(), 5*time.Second)
		controller = NewControllerWithDeps(InterpreterFunc(scanning.Parse), newSequenceIDGenerator("session"))
	})

	AfterEach(func() {
		cancel()
	})

	JustBeforeEach(func() {
		err = Feed(ctx, reader, controller)
	})

	When("the reader is exhausted", func() {
		BeforeEach(func() {
			reader = &mockReader{payloads: []string{plainPayload}}
		})

		It("should return nil", func() {
			Expect(err).NotTo(HaveOccurred())
		})

		It("should deliver the payload", func() {
			Expect(controller.State()).To(BeAssignableToTypeOf(ShowingResult{}))
		})
	})

	When("payloads arrive after a code is accepted", func() {
		BeforeEach(func() {
			reader = &mockReader{payloads: []string{pinPayload, plainPayload}}
		})

		It("should drop them", func() {
			pending, ok := controller.State().(PendingVerification)
			Expect(ok).To(BeTrue())
			Expect(pending.Pending.RawText).To(Equal(pinPayload))
		})
	})

	When("unstructured payloads arrive first", func() {
		BeforeEach(func() {
			reader = &mockReader{payloads: []string{"hello", plainPayload}}
		})

		It("should keep scanning until a structured one arrives", func() {
			shown, ok := controller.State().(ShowingResult)
			Expect(ok).To(BeTrue())
			Expect(shown.Result.RawText).To(Equal(plainPayload))
		})
	})

	When("the reader fails", func() {
		BeforeEach(func() {
			reader = &mockReader{readErr: errors.New("camera disconnected")}
		})

		It("should return the wrapped error", func() {
			Expect(err).To(MatchError(ContainSubstring("reading scanned text: camera disconnected")))
		})

		It("should report the error to the controller", func() {
			Expect(controller.LastError()).To(Equal("Error reading QR code: camera disconnected"))
		})
	})

	When("the context is cancelled", func() {
		BeforeEach(func() {
			pr, _ := io.Pipe()
			reader = scanning.NewLineReader(pr)
			cancel()
		})

		It("should return the context error", func() {
			Expect(err).To(MatchError(context.Canceled))
		})

		It("should not report an error", func() {
			Expect(controller.LastError()).To(BeEmpty())
		})
	})

	When("reading lines from a stream", func() {
		BeforeEach(func() {
			reader = scanning.NewLineReader(strings.NewReader("plain text\n" + pinPayload + "\n"))
		})

		It("should gate the first structured payload", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(controller.State()).To(BeAssignableToTypeOf(PendingVerification{}))
		})
	})
})
