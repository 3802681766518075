package controller_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/unclebandit/bulksms-backend/internal/controller"
	appErrors "github.com/unclebandit/bulksms-backend/internal/errors"
	"github.com/unclebandit/bulksms-backend/internal/model"
	"github.com/unclebandit/bulksms-backend/internal/service"
)

// --- Mock Repositories ---

type MockCampaignRepo struct {
	created []*model.Campaign
}

func (m *MockCampaignRepo) Create(c *model.Campaign) error {
	c.ID = len(m.created) + 1
	m.created = append(m.created, c)
	return nil
}

func (m *MockCampaignRepo) GetByID(id int) (*model.Campaign, error) {
	return nil, appErrors.NewCampaignNotFound(id)
}

func (m *MockCampaignRepo) ListCampaigns(offset, limit int, status, search string) ([]*model.Campaign, int, error) {
	return []*model.Campaign{}, 0, nil
}

func (m *MockCampaignRepo) UpdateStatus(id int, status string) error        { return nil }
func (m *MockCampaignRepo) Delete(id int) error                             { return nil }
func (m *MockCampaignRepo) DueScheduled(now time.Time) ([]*model.Campaign, error) { return nil, nil }

type MockContactRepo struct{}

func (m *MockContactRepo) ListGroups() ([]model.ContactGroup, error)    { return nil, nil }
func (m *MockContactRepo) GetGroup(id int) (*model.ContactGroup, error) { return nil, nil }
func (m *MockContactRepo) ActiveGroupIDs(ids []int) ([]int, error)      { return ids, nil }
func (m *MockContactRepo) CountActiveEntries(ids []int) (int, error)    { return 0, nil }
func (m *MockContactRepo) ActiveEntriesChunk(groupID, afterID, limit int) ([]model.ContactEntry, error) {
	return nil, nil
}

type MockOutcomeRepo struct{}

func (m *MockOutcomeRepo) InsertIfAbsent(o *model.DispatchOutcome) (bool, error) { return true, nil }
func (m *MockOutcomeRepo) Exists(campaignID int, recipient, message string) (bool, error) {
	return false, nil
}
func (m *MockOutcomeRepo) CountByStatus(campaignID int) (map[string]int, error) {
	return map[string]int{}, nil
}
func (m *MockOutcomeRepo) ListByCampaign(campaignID, offset, limit int) ([]model.DispatchOutcome, int, error) {
	return nil, 0, nil
}

type MockQueue struct {
	published []any
}

func (m *MockQueue) Publish(topic string, payload any) error {
	m.published = append(m.published, payload)
	return nil
}
func (m *MockQueue) Subscribe(topic string, handler func(payload any) error) error { return nil }

func newController(q *MockQueue) *controller.CampaignController {
	return &controller.CampaignController{
		CampaignService: &service.CampaignService{
			CampaignRepo: &MockCampaignRepo{},
			ContactRepo:  &MockContactRepo{},
			OutcomeRepo:  &MockOutcomeRepo{},
			Queue:        q,
		},
	}
}

// --- Test Functions ---

func TestCreateCampaignHandler(t *testing.T) {
	q := &MockQueue{}
	ctrl := newController(q)

	body := map[string]interface{}{
		"title":              "Promo",
		"message":            "Hi {name}",
		"contact_type":       "manual",
		"recipient_contacts": "0711000111,0722000222",
	}
	b, _ := json.Marshal(body)

	req := httptest.NewRequest("POST", "/campaigns", bytes.NewReader(b))
	w := httptest.NewRecorder()

	ctrl.CreateCampaign(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}

	var res model.Campaign
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if res.ID == 0 || res.Status != model.StatusProcessing {
		t.Errorf("unexpected campaign: %+v", res)
	}
	if len(q.published) != 1 {
		t.Errorf("expected 1 dispatch trigger, got %d", len(q.published))
	}
}

func TestCreateCampaignHandlerRejectsMismatchedSource(t *testing.T) {
	ctrl := newController(&MockQueue{})

	body := map[string]interface{}{
		"title":        "Broken",
		"message":      "Hi",
		"contact_type": "csv",
		// no csv_file_path
	}
	b, _ := json.Marshal(body)

	req := httptest.NewRequest("POST", "/campaigns", bytes.NewReader(b))
	w := httptest.NewRecorder()

	ctrl.CreateCampaign(w, req)

	if w.Result().StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", w.Result().StatusCode)
	}
}

func TestPreviewMessageHandler(t *testing.T) {
	ctrl := newController(&MockQueue{})

	body := map[string]interface{}{
		"template": "Hello {name} from {town}",
		"context":  map[string]string{"name": "Ann", "town": "Nairobi"},
	}
	b, _ := json.Marshal(body)

	req := httptest.NewRequest("POST", "/campaigns/preview", bytes.NewReader(b))
	w := httptest.NewRecorder()

	ctrl.PreviewMessage(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var res map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if res["rendered_message"] != "Hello Ann from Nairobi" {
		t.Errorf("rendered_message = %v", res["rendered_message"])
	}
}
