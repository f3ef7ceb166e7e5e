package receipt

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/ghttp"

	"github.com/mokgadi/loyalty-receipts/internal/parse"
)

var _ = Describe("Server", func() {
	var (
		db          *mockDB
		detector    *mockDetector
		brands      *mockBrandSource
		images      *mockImageStore
		service     *Service
		auth        BasicAuth
		server      *Server
		ghttpServer *ghttp.Server
	)

	wellFormedReceipt := strings.Join([]string{
		"Brandy's",
		"Brandy's Grove",
		"ITEM",
		"Burger",
		"2",
		"45.00",
		"90.00",
		"Bill Excl",
		"Bill Total 90.00",
	}, "\n")

	newUploadRequest := func(url, phone string) *http.Request {
		var body bytes.Buffer
		writer := multipart.NewWriter(&body)
		if phone != "" {
			Expect(writer.WriteField("phone", phone)).To(Succeed())
		}
		part, err := writer.CreateFormFile("file", "receipt.jpg")
		Expect(err).NotTo(HaveOccurred())
		_, err = part.Write([]byte("image bytes"))
		Expect(err).NotTo(HaveOccurred())
		Expect(writer.Close()).To(Succeed())

		req, err := http.NewRequest("POST", url, &body)
		Expect(err).NotTo(HaveOccurred())
		req.Header.Set("Content-Type", writer.FormDataContentType())
		return req
	}

	JustBeforeEach(func() {
		service = NewServiceWithDeps(db, detector, brands, images,
			&fixedKeyGenerator{key: "generated-key"},
			&fixedTimeSource{now: time.Date(2026, 6, 28, 19, 42, 0, 0, time.UTC)},
			parse.MatchSubstringFirst)
		server = NewServerWithMux(service, auth, http.NewServeMux())
		ghttpServer = ghttp.NewServer()
		ghttpServer.AppendHandlers(server.ServeHTTP)
	})

	BeforeEach(func() {
		db = newMockDB()
		detector = &mockDetector{result: textResult(wellFormedReceipt)}
		brands = &mockBrandSource{brands: map[string]string{"brandy's": "Brandy's"}}
		images = newMockImageStore()
		auth = BasicAuth{}
	})

	AfterEach(func() {
		if ghttpServer != nil {
			ghttpServer.Close()
		}
	})

	Describe("POST /api/receipts", func() {
		When("the upload is a readable receipt", func() {
			It("returns 201 with the parsed receipt", func() {
				req := newUploadRequest(ghttpServer.URL()+"/api/receipts", "+27115550199")
				resp, err := http.DefaultClient.Do(req)
				Expect(err).NotTo(HaveOccurred())
				defer resp.Body.Close()
				Expect(resp.StatusCode).To(Equal(http.StatusCreated))

				var receipt Receipt
				Expect(json.NewDecoder(resp.Body).Decode(&receipt)).To(Succeed())
				Expect(receipt.BrandName).To(Equal("Brandy's"))
				Expect(receipt.Items).To(HaveLen(1))
				Expect(receipt.GuestPhoneNumber).To(Equal("+27115550199"))
			})
		})

		When("the phone number is missing", func() {
			It("returns 400", func() {
				req := newUploadRequest(ghttpServer.URL()+"/api/receipts", "")
				resp, err := http.DefaultClient.Do(req)
				Expect(err).NotTo(HaveOccurred())
				defer resp.Body.Close()
				Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))

				var body map[string]string
				Expect(json.NewDecoder(resp.Body).Decode(&body)).To(Succeed())
				Expect(body["error"]).To(ContainSubstring("Phone number"))
			})
		})

		When("the receipt brand is unknown", func() {
			BeforeEach(func() {
				brands.brands = map[string]string{}
			})

			It("returns 400 with the user-facing guidance", func() {
				req := newUploadRequest(ghttpServer.URL()+"/api/receipts", "+27115550199")
				resp, err := http.DefaultClient.Do(req)
				Expect(err).NotTo(HaveOccurred())
				defer resp.Body.Close()
				Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))

				var body map[string]string
				Expect(json.NewDecoder(resp.Body).Decode(&body)).To(Succeed())
				Expect(body["error"]).To(ContainSubstring("Please"))
				Expect(body["error"]).NotTo(ContainSubstring("error"))
			})
		})
	})

	Describe("GET /api/receipts", func() {
		When("receipts exist", func() {
			BeforeEach(func() {
				db.receipts["a"] = &Receipt{ID: "a", GuestPhoneNumber: "+27000000001"}
			})

			It("returns the list", func() {
				resp, err := http.Get(ghttpServer.URL() + "/api/receipts")
				Expect(err).NotTo(HaveOccurred())
				defer resp.Body.Close()
				Expect(resp.StatusCode).To(Equal(http.StatusOK))

				var receipts []*Receipt
				Expect(json.NewDecoder(resp.Body).Decode(&receipts)).To(Succeed())
				Expect(receipts).To(HaveLen(1))
			})
		})
	})

	Describe("GET /api/receipts/{id}", func() {
		When("the receipt exists", func() {
			BeforeEach(func() {
				db.receipts["inv-1"] = &Receipt{ID: "inv-1"}
			})

			It("returns it", func() {
				resp, err := http.Get(ghttpServer.URL() + "/api/receipts/inv-1")
				Expect(err).NotTo(HaveOccurred())
				defer resp.Body.Close()
				Expect(resp.StatusCode).To(Equal(http.StatusOK))
			})
		})

		When("the receipt does not exist", func() {
			It("returns 404", func() {
				resp, err := http.Get(ghttpServer.URL() + "/api/receipts/missing")
				Expect(err).NotTo(HaveOccurred())
				resp.Body.Close()
				Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
			})
		})
	})

	Describe("GET /api/guests/{phone}/receipts", func() {
		BeforeEach(func() {
			db.receipts["a"] = &Receipt{ID: "a", GuestPhoneNumber: "+27000000001"}
			db.phoneIndex["+27000000001"] = []string{"a"}
		})

		It("returns the guest's receipts", func() {
			resp, err := http.Get(ghttpServer.URL() + "/api/guests/+27000000001/receipts")
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var receipts []*Receipt
			Expect(json.NewDecoder(resp.Body).Decode(&receipts)).To(Succeed())
			Expect(receipts).To(HaveLen(1))
			Expect(receipts[0].ID).To(Equal("a"))
		})
	})

	Describe("DELETE /api/receipts/{id}", func() {
		BeforeEach(func() {
			db.receipts["a"] = &Receipt{ID: "a", ImageURL: "a.jpg"}
			images.files["a.jpg"] = []byte("image")
		})

		It("returns 204 and removes the receipt", func() {
			req, err := http.NewRequest("DELETE", ghttpServer.URL()+"/api/receipts/a", nil)
			Expect(err).NotTo(HaveOccurred())
			resp, err := http.DefaultClient.Do(req)
			Expect(err).NotTo(HaveOccurred())
			resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusNoContent))
			Expect(db.receipts).To(BeEmpty())
		})
	})

	Describe("campaign endpoints", func() {
		It("creates a campaign", func() {
			body := bytes.NewBufferString(`{"brand_name": "Brandy's"}`)
			resp, err := http.Post(ghttpServer.URL()+"/api/campaigns", "application/json", body)
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusCreated))

			var campaign Campaign
			Expect(json.NewDecoder(resp.Body).Decode(&campaign)).To(Succeed())
			Expect(campaign.BrandName).To(Equal("Brandy's"))
		})

		It("lists campaigns", func() {
			db.campaigns["1"] = &Campaign{ID: "1", BrandName: "Brandy's"}
			resp, err := http.Get(ghttpServer.URL() + "/api/campaigns")
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var campaigns []*Campaign
			Expect(json.NewDecoder(resp.Body).Decode(&campaigns)).To(Succeed())
			Expect(campaigns).To(HaveLen(1))
		})

		It("rejects an empty brand name", func() {
			body := bytes.NewBufferString(`{"brand_name": ""}`)
			resp, err := http.Post(ghttpServer.URL()+"/api/campaigns", "application/json", body)
			Expect(err).NotTo(HaveOccurred())
			resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		})
	})

	Describe("basic auth", func() {
		BeforeEach(func() {
			auth = BasicAuth{Username: "admin", Password: "secret"}
		})

		When("no credentials are provided", func() {
			It("returns 401", func() {
				resp, err := http.Get(ghttpServer.URL() + "/api/receipts")
				Expect(err).NotTo(HaveOccurred())
				resp.Body.Close()
				Expect(resp.StatusCode).To(Equal(http.StatusUnauthorized))
			})
		})

		When("valid credentials are provided", func() {
			It("allows the request", func() {
				req, err := http.NewRequest("GET", ghttpServer.URL()+"/api/receipts", nil)
				Expect(err).NotTo(HaveOccurred())
				req.Header.Set("Authorization", "Basic "+base64.StdEncoding.EncodeToString([]byte("admin:secret")))
				resp, err := http.DefaultClient.Do(req)
				Expect(err).NotTo(HaveOccurred())
				defer resp.Body.Close()
				Expect(resp.StatusCode).To(Equal(http.StatusOK))
				_, err = io.ReadAll(resp.Body)
				Expect(err).NotTo(HaveOccurred())
			})
		})

		When("wrong credentials are provided", func() {
			It("returns 401", func() {
				req, err := http.NewRequest("GET", ghttpServer.URL()+"/api/receipts", nil)
				Expect(err).NotTo(HaveOccurred())
				req.Header.Set("Authorization", "Basic "+base64.StdEncoding.EncodeToString([]byte("admin:wrong")))
				resp, err := http.DefaultClient.Do(req)
				Expect(err).NotTo(HaveOccurred())
				resp.Body.Close()
				Expect(resp.StatusCode).To(Equal(http.StatusUnauthorized))
			})
		})
	})
})
