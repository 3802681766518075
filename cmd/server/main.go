// cmd/server/main.go
package main

import (
	"log"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
	"github.com/streadway/amqp"

	"github.com/unclebandit/bulksms-backend/internal/controller"
	"github.com/unclebandit/bulksms-backend/internal/db"
	"github.com/unclebandit/bulksms-backend/internal/dispatch"
	"github.com/unclebandit/bulksms-backend/internal/gateway"
	"github.com/unclebandit/bulksms-backend/internal/handler"
	"github.com/unclebandit/bulksms-backend/internal/queue"
	"github.com/unclebandit/bulksms-backend/internal/repository"
	"github.com/unclebandit/bulksms-backend/internal/service"
)

func main() {
	// Load .env
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️ No .env file found, relying on OS environment variables")
	}

	conn := db.Connect()

	campaignRepo := &repository.CampaignRepository{DB: conn}
	contactRepo := &repository.ContactRepository{DB: conn}
	outcomeRepo := &repository.OutcomeRepository{DB: conn}
	lockRepo := &repository.LockRepository{DB: conn}

	// Dispatch triggers go to RabbitMQ when configured; otherwise an
	// in-memory queue runs the engine in-process.
	var q queue.Queue
	if amqpURL := os.Getenv("AMQP_URL"); amqpURL != "" {
		conn, err := amqp.Dial(amqpURL)
		if err != nil {
			log.Fatal("Failed to connect to RabbitMQ:", err)
		}
		q, err = queue.NewAmqpQueue(conn)
		if err != nil {
			log.Fatal("Failed to open dispatch queue:", err)
		}
	} else {
		log.Println("⚠️ AMQP_URL not set, running dispatch in-process")
		memq := queue.NewInMemoryQueue()
		runner := &dispatch.Runner{
			Campaigns: campaignRepo,
			Outcomes:  outcomeRepo,
			Locks:     lockRepo,
			Resolver: &dispatch.Resolver{
				Groups:     contactRepo,
				StorageDir: os.Getenv("CSV_STORAGE_DIR"),
			},
			Gateway: gateway.NewHTTPClient(gateway.Config{
				APIURL:   os.Getenv("SMS_API_URL"),
				Username: os.Getenv("SMS_USERNAME"),
				APIKey:   os.Getenv("SMS_API_KEY"),
				SenderID: os.Getenv("SMS_SENDER_ID"),
			}),
		}
		queue.StartDispatchSubscriber(memq, runner)
		q = memq
	}

	campaignService := &service.CampaignService{
		CampaignRepo: campaignRepo,
		ContactRepo:  contactRepo,
		OutcomeRepo:  outcomeRepo,
		Queue:        q,
	}

	campaignController := &controller.CampaignController{
		CampaignService: campaignService,
	}

	campaignHandler := &handler.CampaignHandler{
		Service: campaignService,
	}

	r := chi.NewRouter()

	// Campaign routes
	r.Post("/campaigns", campaignController.CreateCampaign)
	r.Get("/campaigns", campaignController.ListCampaigns)
	r.Get("/campaigns/{id}", campaignHandler.GetCampaignWithStats)
	r.Post("/campaigns/{id}/dispatch", campaignController.TriggerDispatch)
	r.Post("/campaigns/{id}/cancel", campaignController.CancelCampaign)
	r.Delete("/campaigns/{id}", campaignController.DeleteCampaign)
	r.Get("/campaigns/{id}/outcomes", campaignHandler.ListOutcomes)
	r.Get("/campaigns/{id}/outcomes/export", campaignHandler.ExportOutcomes)
	r.Post("/campaigns/preview", campaignController.PreviewMessage)
	r.Get("/contact-groups", campaignController.ListContactGroups)

	log.Println("🚀 Server running on :8080")
	log.Fatal(http.ListenAndServe(":8080", r))
}
