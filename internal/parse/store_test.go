package parse

import (
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("ExtractStoreDetails", func() {
	var (
		text    string
		brands  map[string]string
		policy  BrandMatchPolicy
		details StoreDetails
	)

	BeforeEach(func() {
		brands = map[string]string{"brandy's": "Brandy's"}
		policy = MatchSubstringFirst
	})

	JustBeforeEach(func() {
		details = ExtractStoreDetails(text, brands, policy)
	})

	When("the brand appears on the first line", func() {
		BeforeEach(func() {
			text = strings.Join([]string{
				"Brandy's",
				"Brandy's Grove",
				"Shop 14 Greenstone Mall",
				"011 555 0199",
			}, "\n")
		})

		It("records the canonical brand name", func() {
			Expect(details.BrandName).To(Equal("Brandy's"))
		})

		It("takes the next line as the store name", func() {
			Expect(details.StoreName).To(Equal("Brandy's Grove"))
		})

		It("finds the address by token match", func() {
			Expect(details.StoreAddress).To(Equal("Shop 14 Greenstone Mall"))
		})

		It("composes the full store name", func() {
			Expect(details.FullStoreName).To(Equal("Brandy's Brandy's Grove"))
		})

		It("reports the brand as found", func() {
			Expect(details.Found()).To(BeTrue())
		})
	})

	When("the brand appears on the fifth line", func() {
		BeforeEach(func() {
			text = strings.Join([]string{
				"Welcome",
				"Tax Invoice",
				"",
				"",
				"BRANDY'S",
				"Grove Branch",
			}, "\n")
		})

		It("is still detected", func() {
			Expect(details.BrandName).To(Equal("Brandy's"))
		})

		It("takes the store name from the following line", func() {
			Expect(details.StoreName).To(Equal("Grove Branch"))
		})
	})

	When("the brand appears only on the sixth line", func() {
		BeforeEach(func() {
			text = strings.Join([]string{
				"Welcome",
				"Tax Invoice",
				"",
				"",
				"",
				"Brandy's",
			}, "\n")
		})

		It("is not detected", func() {
			Expect(details.BrandName).To(Equal(UnknownBrand))
		})

		It("leaves the store name at the sentinel", func() {
			Expect(details.StoreName).To(Equal(UnknownLocation))
		})

		It("reports the brand as missing", func() {
			Expect(details.Found()).To(BeFalse())
		})
	})

	When("the brand is on the last line with nothing after it", func() {
		BeforeEach(func() {
			text = "Brandy's"
		})

		It("detects the brand", func() {
			Expect(details.BrandName).To(Equal("Brandy's"))
		})

		It("leaves the store name at the sentinel", func() {
			Expect(details.StoreName).To(Equal(UnknownLocation))
		})
	})

	When("no line matches any brand", func() {
		BeforeEach(func() {
			text = "Some Other Shop\nMain Road"
		})

		It("returns the unknown brand sentinel", func() {
			Expect(details.BrandName).To(Equal(UnknownBrand))
		})

		It("still composes a full store name from the sentinels", func() {
			Expect(details.FullStoreName).To(Equal("Unknown Brand Unknown Location"))
		})
	})

	When("one brand is a substring of another", func() {
		BeforeEach(func() {
			brands = map[string]string{
				"grill":       "Grill",
				"grill house": "Grill House",
			}
			text = "Grill House\nSandton Branch"
		})

		Context("with the substring-first policy", func() {
			BeforeEach(func() {
				policy = MatchSubstringFirst
			})

			It("takes the first matching brand in sorted order", func() {
				Expect(details.BrandName).To(Equal("Grill"))
			})
		})

		Context("with the word-boundary policy", func() {
			BeforeEach(func() {
				policy = MatchWordBoundary
			})

			It("prefers the longest matching brand", func() {
				Expect(details.BrandName).To(Equal("Grill House"))
			})
		})
	})

	When("the brand is part of a larger word", func() {
		BeforeEach(func() {
			brands = map[string]string{"ace": "Ace"}
			text = "Palace Diner\nSomewhere"
		})

		Context("with the substring-first policy", func() {
			BeforeEach(func() {
				policy = MatchSubstringFirst
			})

			It("matches inside the longer word", func() {
				Expect(details.BrandName).To(Equal("Ace"))
			})
		})

		Context("with the word-boundary policy", func() {
			BeforeEach(func() {
				policy = MatchWordBoundary
			})

			It("does not match", func() {
				Expect(details.BrandName).To(Equal(UnknownBrand))
			})
		})
	})

	When("the text is empty", func() {
		BeforeEach(func() {
			text = ""
		})

		It("returns both sentinels", func() {
			Expect(details.BrandName).To(Equal(UnknownBrand))
			Expect(details.StoreName).To(Equal(UnknownLocation))
		})
	})
})
