package vectorstore

import (
	"context"
	"fmt"
	"net"
	"strconv"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"

	"github.com/mkurata/appraisal/internal/catalog"
)

// DefaultCollection is the default qdrant collection name for the listing corpus.
const DefaultCollection = "listings"

// Payload field names stored with each listing point.
const (
	fieldSource      = "source_platform"
	fieldListingName = "listing_name"
	fieldDesigner    = "designer"
	fieldModel       = "model"
	fieldSize        = "size"
	fieldMaterial    = "material"
	fieldColor       = "color"
	fieldDescription = "description"
	fieldPrice       = "price"
	fieldCondition   = "condition_score"
)

// QdrantStore implements VectorStore using Qdrant
type QdrantStore struct {
	client     *qdrant.Client
	collection string
}

// NewQdrantStore creates a new Qdrant vector store client.
// url should be in format "host:port" (e.g., "localhost:6334").
func NewQdrantStore(ctx context.Context, url, collection string) (*QdrantStore, error) {
	host, portStr, err := net.SplitHostPort(url)
	if err != nil {
		// If no port specified, assume default
		host = url
		portStr = "6334"
	}

	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, fmt.Errorf("invalid port in qdrant url: %w", err)
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host: host,
		Port: port,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create qdrant client: %w", err)
	}

	if collection == "" {
		collection = DefaultCollection
	}

	return &QdrantStore{client: client, collection: collection}, nil
}

// Close closes the Qdrant client connection
func (s *QdrantStore) Close() error {
	return s.client.Close()
}

// CreateCollection creates the listing collection with cosine distance
func (s *QdrantStore) CreateCollection(ctx context.Context, dimension int) error {
	err := s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: s.collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(dimension),
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	return nil
}

// CollectionExists checks if the listing collection exists
func (s *QdrantStore) CollectionExists(ctx context.Context) (bool, error) {
	exists, err := s.client.CollectionExists(ctx, s.collection)
	if err != nil {
		return false, fmt.Errorf("failed to check collection existence: %w", err)
	}

	return exists, nil
}

// Upsert inserts or updates listings in the index
func (s *QdrantStore) Upsert(ctx context.Context, listings []IndexedListing) error {
	if len(listings) == 0 {
		return nil
	}

	points := make([]*qdrant.PointStruct, len(listings))
	for i, il := range listings {
		l := il.Listing
		points[i] = &qdrant.PointStruct{
			Id:      qdrant.NewIDUUID(l.ID.String()),
			Vectors: qdrant.NewVectors(il.Vector...),
			Payload: map[string]*qdrant.Value{
				fieldSource:      qdrant.NewValueString(l.SourcePlatform),
				fieldListingName: qdrant.NewValueString(l.ListingName),
				fieldDesigner:    qdrant.NewValueString(l.Designer),
				fieldModel:       qdrant.NewValueString(l.Model),
				fieldSize:        qdrant.NewValueString(l.Size),
				fieldMaterial:    qdrant.NewValueString(l.Material),
				fieldColor:       qdrant.NewValueString(l.Color),
				fieldDescription: qdrant.NewValueString(l.Description),
				fieldPrice:       qdrant.NewValueDouble(l.Price),
				fieldCondition:   qdrant.NewValueInt(int64(l.ConditionScore)),
			},
		}
	}

	_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: s.collection,
		Points:         points,
	})
	if err != nil {
		return fmt.Errorf("failed to upsert points: %w", err)
	}

	return nil
}

// Search performs similarity search over the listing collection
func (s *QdrantStore) Search(ctx context.Context, vector []float32, topK int, minScore float32) ([]SearchResult, error) {
	response, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: s.collection,
		Query:          qdrant.NewQuery(vector...),
		Limit:          qdrant.PtrOf(uint64(topK)),
		WithPayload:    qdrant.NewWithPayload(true),
		ScoreThreshold: qdrant.PtrOf(minScore),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search: %w", err)
	}

	results := make([]SearchResult, 0, len(response))
	for _, point := range response {
		result := SearchResult{Score: point.Score}
		result.Listing = listingFromPayload(point.Id.GetUuid(), point.Payload)
		results = append(results, result)
	}

	return results, nil
}

func listingFromPayload(id string, payload map[string]*qdrant.Value) catalog.ComparableListing {
	listing := catalog.ComparableListing{}
	if parsed, err := uuid.Parse(id); err == nil {
		listing.ID = parsed
	}
	if payload == nil {
		return listing
	}

	getString := func(key string) string {
		if v, ok := payload[key]; ok {
			return v.GetStringValue()
		}
		return ""
	}

	listing.SourcePlatform = getString(fieldSource)
	listing.ListingName = getString(fieldListingName)
	listing.Designer = getString(fieldDesigner)
	listing.Model = getString(fieldModel)
	listing.Size = getString(fieldSize)
	listing.Material = getString(fieldMaterial)
	listing.Color = getString(fieldColor)
	listing.Description = getString(fieldDescription)
	if v, ok := payload[fieldPrice]; ok {
		listing.Price = v.GetDoubleValue()
	}
	if v, ok := payload[fieldCondition]; ok {
		listing.ConditionScore = int(v.GetIntegerValue())
	}

	return listing
}

// Ensure QdrantStore implements VectorStore
var _ VectorStore = (*QdrantStore)(nil)
