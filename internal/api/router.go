package api

import (
	"log"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"

	"visitor-register-backend/internal/export"
	"visitor-register-backend/internal/lifecycle"
	"visitor-register-backend/internal/metrics"
	"visitor-register-backend/internal/mw"
	"visitor-register-backend/internal/store"
)

// Dependencies are the collaborators wired into the router.
type Dependencies struct {
	Store          store.Store
	Controller     *lifecycle.Controller
	Cache          mw.ResponseCache
	RateLimiter    *mw.IPRateLimiter
	Webpush        *webpush.Options
	Export         export.Options
	Metrics        *metrics.Recorder
	MaxUploadBytes int64
	// TrustedProxies may set X-Forwarded-For for rate limiting. Nil trusts
	// none, so the limiter keys on the connection address.
	TrustedProxies []string
}

// NewRouter creates and configures a new Gin router.
func NewRouter(d Dependencies) *gin.Engine {
	r := gin.Default()
	if err := r.SetTrustedProxies(d.TrustedProxies); err != nil {
		log.Printf("invalid trusted proxies %v, trusting none: %v", d.TrustedProxies, err)
		_ = r.SetTrustedProxies(nil)
	}

	handler := NewHandler(d.Store, d.Controller, d.Webpush)
	handler.export = d.Export
	handler.metrics = d.Metrics
	if d.MaxUploadBytes > 0 {
		handler.maxUploadBytes = d.MaxUploadBytes
		r.MaxMultipartMemory = d.MaxUploadBytes
	}

	r.GET("/healthz", handler.Healthz)
	if d.Metrics != nil {
		r.GET("/metrics", gin.WrapH(d.Metrics.Handler()))
	}

	// API group
	api := r.Group("/api")
	if d.RateLimiter != nil {
		api.Use(mw.RateLimiter(d.RateLimiter))
	}

	caching := func(c *gin.Context) { c.Next() }
	if d.Cache != nil {
		// Every successful write drops cached reads.
		api.Use(mw.InvalidateOnWrite(d.Cache))
		caching = mw.Cache(d.Cache)
	}

	{
		api.GET("/entries", caching, handler.ListEntries)
		api.GET("/entries/:id", caching, handler.GetEntry)
		api.GET("/entries/:id/qr.png", handler.EntryQR)
		api.POST("/entries", handler.CreateEntry)
		api.POST("/entries/bulk", handler.CreateEntries)
		api.POST("/entries/import", handler.ImportEntries)
		api.PATCH("/entries/:id/exit", handler.ExitEntry)
		api.DELETE("/entries/:id", handler.DeleteEntry)
		api.POST("/scan", handler.Scan)

		api.GET("/export/entries.pdf", handler.ExportPDF)
		api.GET("/export/entries.xlsx", handler.ExportXLSX)
		api.GET("/export/entries.csv", handler.ExportCSV)
		api.GET("/export/qrcodes.pdf", handler.ExportQRSheet)

		api.GET("/subscriptions", handler.GetSubscription)
		api.PUT("/subscriptions", handler.PutSubscription)
		api.DELETE("/subscriptions", handler.DeleteSubscription)
		api.GET("/vapid_public_key", handler.GetVAPIDPublicKey)
	}

	return r
}
