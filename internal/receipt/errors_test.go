package receipt

import (
	"errors"
	"fmt"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("wrapProcessError", func() {
	When("the error is nil", func() {
		It("returns nil", func() {
			Expect(wrapProcessError(nil)).To(BeNil())
		})
	})

	When("the error is already a ProcessError", func() {
		It("passes it through unchanged", func() {
			original := newProcessError(KindUnknownBrand, nil)
			Expect(wrapProcessError(original)).To(BeIdenticalTo(original))
		})
	})

	When("the error is a wrapped ProcessError", func() {
		It("unwraps to the ProcessError", func() {
			original := newProcessError(KindMissingTotal, nil)
			wrapped := fmt.Errorf("processing: %w", original)
			Expect(wrapProcessError(wrapped)).To(BeIdenticalTo(original))
		})
	})

	When("the message already looks user-facing", func() {
		It("keeps a message containing Please", func() {
			err := errors.New("Please retake the photo")
			Expect(wrapProcessError(err)).To(BeIdenticalTo(err))
		})

		It("keeps a message containing This might be", func() {
			err := errors.New("This might be due to glare")
			Expect(wrapProcessError(err)).To(BeIdenticalTo(err))
		})
	})

	When("the error is technical", func() {
		var wrapped error

		BeforeEach(func() {
			wrapped = wrapProcessError(errors.New("bbolt: database not open"))
		})

		It("rewrites it into the generic guidance", func() {
			var pe *ProcessError
			Expect(errors.As(wrapped, &pe)).To(BeTrue())
			Expect(pe.Kind).To(Equal(KindProcessingFailed))
			Expect(pe.Message).To(ContainSubstring("Please"))
		})

		It("hides the technical message from the caller", func() {
			Expect(wrapped.Error()).NotTo(ContainSubstring("bbolt"))
		})

		It("keeps the cause for logs", func() {
			var pe *ProcessError
			Expect(errors.As(wrapped, &pe)).To(BeTrue())
			Expect(pe.Unwrap()).To(MatchError("bbolt: database not open"))
		})
	})
})

var _ = Describe("user messages", func() {
	It("every kind has actionable guidance", func() {
		for kind, msg := range userMessages {
			Expect(looksUserFacing(msg)).To(BeTrue(), "message for %s must look user-facing", kind)
		}
	})
})
