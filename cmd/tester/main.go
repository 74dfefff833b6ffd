package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"
	"gitlab.com/timkado/api/daisi-webhook-ingestor/internal/model"
	"gitlab.com/timkado/api/daisi-webhook-ingestor/pkg/logger"
	"gitlab.com/timkado/api/daisi-webhook-ingestor/pkg/utils"
	"go.uber.org/zap"
)

// deliveryTask is one webhook POST to perform.
type deliveryTask struct {
	Platform  model.Platform
	CompanyID string
}

var (
	sentCount   atomic.Int64
	failedCount atomic.Int64
)

func main() {
	targetURL := flag.String("url", "http://localhost:8080", "Base URL of the webhook ingestor")
	platformsStr := flag.String("platforms", "facebook,waba,jne,sicepat,anteraja", "Comma-separated list of platforms to exercise")
	companyIDsStr := flag.String("company_ids", "", "Comma-separated list of company IDs (required)")
	rate := flag.Int("rate", 50, "Target webhooks per second (total)")
	duration := flag.Duration("duration", 1*time.Minute, "Load test duration")
	concurrency := flag.Int("concurrency", 10, "Number of concurrent workers")
	logLevel := flag.String("log-level", "info", "Log level (debug, info, warn, error)")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Webhook Load Generator\n")
		fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Generates synthetic provider webhooks and posts them to the ingestor.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
	}

	flag.Parse()

	if err := logger.Initialize(*logLevel); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	companyIDs := strings.Split(*companyIDsStr, ",")
	if len(companyIDs) == 0 || companyIDs[0] == "" {
		logger.Log.Fatal("No company IDs provided, use -company_ids")
	}

	var platforms []model.Platform
	for _, raw := range strings.Split(*platformsStr, ",") {
		p, ok := model.ParsePlatform(strings.TrimSpace(raw))
		if !ok {
			logger.Log.Fatal("Unknown platform", zap.String("platform", raw))
		}
		platforms = append(platforms, p)
	}

	rand.Seed(time.Now().UnixNano())
	gofakeit.Seed(time.Now().UnixNano())

	logger.Log.Info("Starting webhook load generator",
		zap.String("url", *targetURL),
		zap.String("platforms", *platformsStr),
		zap.String("company_ids", *companyIDsStr),
		zap.Int("rate_per_sec", *rate),
		zap.Duration("duration", *duration),
		zap.Int("concurrency", *concurrency),
	)

	httpClient := &http.Client{Timeout: 10 * time.Second}

	var wg sync.WaitGroup
	pool, err := ants.NewPoolWithFunc(*concurrency, func(data interface{}) {
		defer wg.Done()
		task, ok := data.(deliveryTask)
		if !ok {
			logger.Log.Error("Invalid task type submitted to pool")
			return
		}
		postWebhook(httpClient, *targetURL, task)
	})
	if err != nil {
		logger.Log.Fatal("Failed to create worker pool", zap.Error(err))
	}
	defer pool.Release()

	ctx, cancel := context.WithTimeout(context.Background(), *duration)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		logger.Log.Info("Received signal, stopping load", zap.String("signal", sig.String()))
		cancel()
	}()

	ticker := time.NewTicker(time.Second / time.Duration(*rate))
	defer ticker.Stop()

loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case <-ticker.C:
			task := deliveryTask{
				Platform:  platforms[rand.Intn(len(platforms))],
				CompanyID: companyIDs[rand.Intn(len(companyIDs))],
			}
			wg.Add(1)
			if err := pool.Invoke(task); err != nil {
				wg.Done()
				logger.Log.Warn("Failed to submit task", zap.Error(err))
			}
		}
	}

	wg.Wait()
	logger.Log.Info("Load generation complete",
		zap.Int64("sent", sentCount.Load()),
		zap.Int64("failed", failedCount.Load()),
	)
}

func postWebhook(client *http.Client, baseURL string, task deliveryTask) {
	body := utils.MustMarshalJSON(fakePayload(task.Platform))

	url := fmt.Sprintf("%s/v1/webhooks/%s", baseURL, task.Platform)
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		failedCount.Add(1)
		logger.Log.Error("Failed to build request", zap.Error(err))
		return
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Company-ID", task.CompanyID)
	req.Header.Set("X-Request-ID", uuid.NewString())

	resp, err := client.Do(req)
	if err != nil {
		failedCount.Add(1)
		logger.Log.Warn("Webhook POST failed", zap.String("url", url), zap.Error(err))
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		failedCount.Add(1)
		logger.Log.Warn("Webhook rejected",
			zap.String("url", url),
			zap.Int("status", resp.StatusCode),
		)
		return
	}
	sentCount.Add(1)
}

// fakePayload builds a provider-shaped payload for the given platform.
func fakePayload(platform model.Platform) map[string]interface{} {
	now := time.Now()
	switch platform {
	case model.PlatformFacebook:
		return map[string]interface{}{
			"object": "page",
			"entry": []map[string]interface{}{
				{
					"id":   gofakeit.DigitN(12),
					"time": now.UnixMilli(),
					"messaging": []map[string]interface{}{
						{
							"sender":    map[string]string{"id": gofakeit.DigitN(15)},
							"recipient": map[string]string{"id": gofakeit.DigitN(12)},
							"timestamp": now.UnixMilli(),
							"message": map[string]interface{}{
								"mid":  "m_" + uuid.NewString(),
								"text": gofakeit.Sentence(8),
							},
						},
					},
				},
			},
		}
	case model.PlatformWaba:
		return map[string]interface{}{
			"object": "whatsapp_business_account",
			"entry": []map[string]interface{}{
				{
					"id": gofakeit.DigitN(15),
					"changes": []map[string]interface{}{
						{
							"field": "messages",
							"value": map[string]interface{}{
								"metadata": map[string]string{"phone_number_id": gofakeit.DigitN(12)},
								"messages": []map[string]interface{}{
									{
										"id":        "wamid." + gofakeit.LetterN(20),
										"from":      gofakeit.DigitN(12),
										"timestamp": fmt.Sprintf("%d", now.Unix()),
										"type":      "text",
										"text":      map[string]string{"body": gofakeit.Sentence(6)},
									},
								},
							},
						},
					},
				},
			},
		}
	case model.PlatformJNE:
		return map[string]interface{}{
			"awb":    gofakeit.LetterN(3) + gofakeit.DigitN(10),
			"status": fakeCourierStatus(),
			"etd":    now.Add(48 * time.Hour).Format(time.RFC3339),
		}
	case model.PlatformSicepat:
		return map[string]interface{}{
			"waybill_number":     gofakeit.DigitN(12),
			"status":             fakeCourierStatus(),
			"estimated_delivery": now.Add(72 * time.Hour).Format(time.RFC3339),
		}
	case model.PlatformAnteraja:
		return map[string]interface{}{
			"tracking_number": "10000" + gofakeit.DigitN(8),
			"state":           fakeCourierStatus(),
			"eta":             now.Add(24 * time.Hour).Format(time.RFC3339),
		}
	default:
		return map[string]interface{}{}
	}
}

// fakeCourierStatus returns a carrier status, occasionally an
// unrecognized one to exercise the fail-safe mapping path.
func fakeCourierStatus() string {
	if rand.Intn(10) == 0 {
		return "WAREHOUSE_SCAN"
	}
	return gofakeit.RandomString([]string{
		"pending", "picked_up", "in_transit", "out_for_delivery", "delivered",
	})
}
