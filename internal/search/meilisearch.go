package search

import (
	"encoding/json"

	"github.com/meilisearch/meilisearch-go"

	"github.com/AmitJPatil13/ESahayak-Task/internal/models"
)

type SearchClient struct {
	client *meilisearch.Client
	index  string
}

func NewSearchClient(host, apiKey string) *SearchClient {
	client := meilisearch.NewClient(meilisearch.ClientConfig{
		Host:   host,
		APIKey: apiKey,
	})

	return &SearchClient{
		client: client,
		index:  "buyers",
	}
}

// InitIndex initializes the Meilisearch index
func (s *SearchClient) InitIndex() error {
	// Create index if it doesn't exist
	_, err := s.client.CreateIndex(&meilisearch.IndexConfig{
		Uid:        s.index,
		PrimaryKey: "id",
	})
	// Ignore error if index already exists
	if err != nil && err.Error() != "index already exists" {
		return err
	}

	// Configure searchable attributes
	_, err = s.client.Index(s.index).UpdateSearchableAttributes(&[]string{
		"fullName",
		"phone",
		"email",
		"notes",
		"tags",
	})
	if err != nil {
		return err
	}

	// Configure filterable attributes
	_, err = s.client.Index(s.index).UpdateFilterableAttributes(&[]string{
		"city",
		"propertyType",
		"status",
		"timeline",
		"source",
	})
	if err != nil {
		return err
	}

	// Configure sortable attributes
	_, err = s.client.Index(s.index).UpdateSortableAttributes(&[]string{
		"createdAt",
		"updatedAt",
	})
	if err != nil {
		return err
	}

	return nil
}

// IndexBuyer indexes a single buyer
func (s *SearchClient) IndexBuyer(buyer *models.Buyer) error {
	_, err := s.client.Index(s.index).AddDocuments([]models.Buyer{*buyer})
	return err
}

// IndexBuyers indexes multiple buyers
func (s *SearchClient) IndexBuyers(buyers []models.Buyer) error {
	if len(buyers) == 0 {
		return nil
	}
	_, err := s.client.Index(s.index).AddDocuments(buyers)
	return err
}

// RemoveBuyer deletes a buyer document from the index
func (s *SearchClient) RemoveBuyer(id string) error {
	_, err := s.client.Index(s.index).DeleteDocument(id)
	return err
}

// Search performs a full-text search across buyer name, phone, email and notes
func (s *SearchClient) Search(query string, limit int64) ([]models.Buyer, error) {
	if limit <= 0 {
		limit = 20
	}

	searchRes, err := s.client.Index(s.index).Search(query, &meilisearch.SearchRequest{
		Limit: limit,
	})
	if err != nil {
		return nil, err
	}

	// Convert hits to buyers
	var buyers []models.Buyer
	for _, hit := range searchRes.Hits {
		hitJSON, err := json.Marshal(hit)
		if err != nil {
			continue
		}

		var buyer models.Buyer
		if err := json.Unmarshal(hitJSON, &buyer); err != nil {
			continue
		}

		buyers = append(buyers, buyer)
	}

	return buyers, nil
}
