// internal/controller/campaign_controller.go
package controller

import (
    "encoding/json"
    "errors"
    "log"
    "net/http"
    "strconv"

    "github.com/go-chi/chi/v5"

    appErrors "github.com/unclebandit/bulksms-backend/internal/errors"
    "github.com/unclebandit/bulksms-backend/internal/service"
)

type CampaignController struct {
    CampaignService *service.CampaignService
}

func (c *CampaignController) CreateCampaign(w http.ResponseWriter, r *http.Request) {
    var body struct {
        Title             string  `json:"title"`
        Message           string  `json:"message"`
        ContactType       string  `json:"contact_type"`
        RecipientContacts string  `json:"recipient_contacts"`
        CsvFilePath       string  `json:"csv_file_path"`
        ContactGroupIDs   []int   `json:"contact_group_ids"`
        ScheduleDate      *string `json:"schedule_date"`
    }
    if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
        http.Error(w, "invalid body", http.StatusBadRequest)
        return
    }

    campaign, err := c.CampaignService.CreateCampaign(service.CreateCampaignInput{
        Title:             body.Title,
        Message:           body.Message,
        ContactType:       body.ContactType,
        RecipientContacts: body.RecipientContacts,
        CsvFilePath:       body.CsvFilePath,
        ContactGroupIDs:   body.ContactGroupIDs,
        ScheduleDate:      body.ScheduleDate,
    })
    if err != nil {
        var invalid *appErrors.ErrInvalidSource
        if errors.As(err, &invalid) {
            http.Error(w, err.Error(), http.StatusUnprocessableEntity)
            return
        }
        http.Error(w, err.Error(), http.StatusBadRequest)
        return
    }

    w.Header().Set("Content-Type", "application/json")
    w.WriteHeader(http.StatusCreated)
    json.NewEncoder(w).Encode(campaign)
}

func (c *CampaignController) ListCampaigns(w http.ResponseWriter, r *http.Request) {
    page, _ := strconv.Atoi(r.URL.Query().Get("page"))
    pageSize, _ := strconv.Atoi(r.URL.Query().Get("page_size"))
    status := r.URL.Query().Get("status")
    search := r.URL.Query().Get("search")

    campaigns, pagination, err := c.CampaignService.ListCampaigns(page, pageSize, status, search)
    if err != nil {
        http.Error(w, err.Error(), http.StatusInternalServerError)
        return
    }

    w.Header().Set("Content-Type", "application/json")
    json.NewEncoder(w).Encode(map[string]interface{}{
        "data":       campaigns,
        "pagination": pagination,
    })
}

// PreviewMessage renders a template against a caller-supplied context
// so the UI can show what a personalized send will look like.
func (c *CampaignController) PreviewMessage(w http.ResponseWriter, r *http.Request) {
    var body struct {
        Template string            `json:"template"`
        Context  map[string]string `json:"context"`
    }
    if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
        http.Error(w, "invalid body", http.StatusBadRequest)
        return
    }

    rendered, err := c.CampaignService.PreviewMessage(body.Template, body.Context)
    if err != nil {
        http.Error(w, err.Error(), http.StatusBadRequest)
        return
    }

    json.NewEncoder(w).Encode(map[string]interface{}{
        "rendered_message": rendered,
    })
}

// TriggerDispatch re-fires the dispatch trigger for a campaign. The
// runner's lock makes duplicate triggers harmless.
func (c *CampaignController) TriggerDispatch(w http.ResponseWriter, r *http.Request) {
    id, err := campaignID(r)
    if err != nil {
        http.Error(w, "invalid campaign id", http.StatusBadRequest)
        return
    }

    if err := c.CampaignService.TriggerDispatch(id); err != nil {
        log.Println("⚠️ failed to publish dispatch trigger:", err)
        http.Error(w, err.Error(), http.StatusInternalServerError)
        return
    }

    w.WriteHeader(http.StatusAccepted)
    json.NewEncoder(w).Encode(map[string]interface{}{"campaign_id": id, "queued": true})
}

func (c *CampaignController) CancelCampaign(w http.ResponseWriter, r *http.Request) {
    id, err := campaignID(r)
    if err != nil {
        http.Error(w, "invalid campaign id", http.StatusBadRequest)
        return
    }

    if err := c.CampaignService.CancelCampaign(id); err != nil {
        status := http.StatusConflict
        var notFound *appErrors.ErrCampaignNotFound
        if errors.As(err, &notFound) {
            status = http.StatusNotFound
        }
        http.Error(w, err.Error(), status)
        return
    }
    w.WriteHeader(http.StatusNoContent)
}

func (c *CampaignController) DeleteCampaign(w http.ResponseWriter, r *http.Request) {
    id, err := campaignID(r)
    if err != nil {
        http.Error(w, "invalid campaign id", http.StatusBadRequest)
        return
    }

    if err := c.CampaignService.DeleteCampaign(id); err != nil {
        status := http.StatusConflict
        var notFound *appErrors.ErrCampaignNotFound
        if errors.As(err, &notFound) {
            status = http.StatusNotFound
        }
        http.Error(w, err.Error(), status)
        return
    }
    w.WriteHeader(http.StatusNoContent)
}

func (c *CampaignController) ListContactGroups(w http.ResponseWriter, r *http.Request) {
    groups, err := c.CampaignService.ListContactGroups()
    if err != nil {
        http.Error(w, err.Error(), http.StatusInternalServerError)
        return
    }
    w.Header().Set("Content-Type", "application/json")
    json.NewEncoder(w).Encode(map[string]interface{}{"data": groups})
}

func campaignID(r *http.Request) (int, error) {
    return strconv.Atoi(chi.URLParam(r, "id"))
}
