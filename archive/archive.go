// Package archive is the write-once store that finished packages are
// committed to, and the lookup service over what it holds.
package archive

import (
	"bytes"
	"crypto/sha1"
	"encoding/json"
	"errors"
	"fmt"
	"github.com/dataconservancy/ingest/codec"
	"github.com/dataconservancy/ingest/constants"
	"github.com/dataconservancy/ingest/models"
	"github.com/dataconservancy/ingest/util"
	"github.com/op/go-logging"
	"github.com/satori/go.uuid"
	"io"
	"io/ioutil"
	"sort"
	"sync"
	"time"
)

// ErrAlreadyArchived means a package tried to change an entity that
// is already in the archive.
var ErrAlreadyArchived = errors.New("entity already archived")

// Store is the archive's write side. Packages go in whole and can
// never be changed once they're in.
type Store interface {
	// PutPackage reads a serialized package and archives every
	// entity in it. Entities that are already archived with exactly
	// the same content are skipped, so a package may be put again
	// with extra events.
	PutPackage(reader io.Reader) error

	// GetPackage returns the package that id was archived in, or
	// nil if id isn't archived.
	GetPackage(id string) (*models.Package, error)

	// GetFullPackage returns id's entity along with everything it
	// refers to, the manifestations of any deliverable units among
	// those, and the events that target any of them.
	GetFullPackage(id string) (*models.Package, error)

	// GetContent returns the archived content of file id.
	GetContent(id string) (io.ReadCloser, error)

	// ListEntities returns the ids of all archived entities of
	// the specified kind, in the order they were archived.
	ListEntities(kind string) ([]string, error)
}

// Lookup is the read-only search interface over the archive. It only
// sees entities the index has caught up with.
type Lookup interface {
	// Lookup returns the entity with the specified id, or nil and
	// no error if the index doesn't have it.
	Lookup(id string) (models.Entity, error)

	// Query returns up to limit matches starting at offset.
	// A limit of zero or less means no limit.
	Query(query *Query, offset, limit int) ([]models.Entity, error)
}

// Query matches entities by kind, and deliverable units by relation.
// Empty fields match anything.
type Query struct {
	Kind           string
	RelationType   string
	RelationTarget string
}

func (query *Query) Matches(entity models.Entity) bool {
	if query.Kind != "" && entity.EntityKind() != query.Kind {
		return false
	}
	if query.RelationType == "" && query.RelationTarget == "" {
		return true
	}
	du, ok := entity.(*models.DeliverableUnit)
	if !ok {
		return false
	}
	for _, relation := range du.Relations {
		if relation == nil || relation.Target == nil {
			continue
		}
		if (query.RelationType == "" || relation.Type == query.RelationType) &&
			(query.RelationTarget == "" || relation.Target.Ref == query.RelationTarget) {
			return true
		}
	}
	return false
}

// ContentSource opens file content by URI, so the archive can copy
// it when a package is put.
type ContentSource interface {
	OpenContent(uri string) (io.ReadCloser, error)
}

type entityRecord struct {
	Id         string          `json:"id"`
	Kind       string          `json:"kind"`
	DepositId  string          `json:"deposit_id"`
	ArchivedAt time.Time       `json:"archived_at"`
	IndexedAt  time.Time       `json:"indexed_at"`
	ContentKey string          `json:"content_key,omitempty"`
	Entity     json.RawMessage `json:"entity"`
}

/*
Archive implements Store and Lookup over a Backend. It keeps each
deposited package as submitted under deposits/, one record per entity
under entities/, and file content under content/.

IndexDelay holds newly archived entities back from Lookup and Query
for a while, the way a search index lags behind the archive.
*/
type Archive struct {
	IndexDelay time.Duration
	backend    Backend
	codec      codec.Codec
	source     ContentSource
	log        *logging.Logger
	mutex      sync.Mutex
}

// New returns an Archive. Param source may be nil, in which case
// file content is not archived.
func New(backend Backend, c codec.Codec, source ContentSource, log *logging.Logger) *Archive {
	return &Archive{
		backend: backend,
		codec:   c,
		source:  source,
		log:     log,
	}
}

func entityKey(id string) string {
	return fmt.Sprintf("entities/%x.json", sha1.Sum([]byte(id)))
}

func contentKey(id string) string {
	return fmt.Sprintf("content/%x", sha1.Sum([]byte(id)))
}

func depositKey(depositId string) string {
	return fmt.Sprintf("deposits/%s.json", depositId)
}

func (archive *Archive) PutPackage(reader io.Reader) error {
	if reader == nil {
		return fmt.Errorf("Param reader cannot be nil.")
	}
	data, err := ioutil.ReadAll(reader)
	if err != nil {
		return err
	}
	pkg, err := archive.codec.Deserialize(data)
	if err != nil {
		return err
	}
	if duplicates := pkg.DuplicateIds(); len(duplicates) > 0 {
		return &codec.FormatError{Message: fmt.Sprintf("duplicate ids %v", duplicates)}
	}

	archive.mutex.Lock()
	defer archive.mutex.Unlock()

	toArchive := make([]models.Entity, 0)
	bodies := make(map[string][]byte)
	for _, entity := range pkg.Entities() {
		body, err := json.Marshal(entity)
		if err != nil {
			return err
		}
		record, err := archive.getRecord(entity.EntityId())
		if err != nil {
			return err
		}
		if record == nil {
			toArchive = append(toArchive, entity)
			bodies[entity.EntityId()] = body
		} else if !bytes.Equal(record.Entity, body) {
			return fmt.Errorf("%w: %s", ErrAlreadyArchived, entity.EntityId())
		}
	}
	if len(toArchive) == 0 {
		return nil
	}

	depositId := uuid.NewV4().String()
	if err = archive.backend.Put(depositKey(depositId), bytes.NewReader(data)); err != nil {
		return err
	}
	now := time.Now().UTC()
	for _, entity := range toArchive {
		record := &entityRecord{
			Id:         entity.EntityId(),
			Kind:       entity.EntityKind(),
			DepositId:  depositId,
			ArchivedAt: now,
			IndexedAt:  now.Add(archive.IndexDelay),
			Entity:     bodies[entity.EntityId()],
		}
		if file, ok := entity.(*models.File); ok {
			if record.ContentKey, err = archive.putContent(file); err != nil {
				return err
			}
		}
		recordJson, err := json.Marshal(record)
		if err != nil {
			return err
		}
		if err = archive.backend.Put(entityKey(record.Id), bytes.NewReader(recordJson)); err != nil {
			return err
		}
	}
	archive.log.Infof("Archived %d of %d entities in deposit %s",
		len(toArchive), pkg.Len(), depositId)
	return nil
}

func (archive *Archive) putContent(file *models.File) (string, error) {
	if archive.source == nil || !file.Extant || file.Source == "" {
		return "", nil
	}
	reader, err := archive.source.OpenContent(file.Source)
	if err != nil {
		return "", fmt.Errorf("Cannot read content of %s from %s: %v", file.Id, file.Source, err)
	}
	defer reader.Close()
	key := contentKey(file.Id)
	if err = archive.backend.Put(key, reader); err != nil {
		return "", err
	}
	return key, nil
}

func (archive *Archive) getRecord(id string) (*entityRecord, error) {
	return archive.loadRecord(entityKey(id))
}

func (archive *Archive) loadRecord(key string) (*entityRecord, error) {
	reader, err := archive.backend.Get(key)
	if err == ErrNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer reader.Close()
	record := &entityRecord{}
	if err = json.NewDecoder(reader).Decode(record); err != nil {
		return nil, fmt.Errorf("Corrupt archive record %s: %v", key, err)
	}
	return record, nil
}

// records returns every entity record, oldest first.
func (archive *Archive) records() ([]*entityRecord, error) {
	keys, err := archive.backend.List("entities/")
	if err != nil {
		return nil, err
	}
	records := make([]*entityRecord, 0, len(keys))
	for _, key := range keys {
		record, err := archive.loadRecord(key)
		if err != nil {
			return nil, err
		}
		if record != nil {
			records = append(records, record)
		}
	}
	sort.SliceStable(records, func(i, j int) bool {
		if records[i].ArchivedAt.Equal(records[j].ArchivedAt) {
			return records[i].Id < records[j].Id
		}
		return records[i].ArchivedAt.Before(records[j].ArchivedAt)
	})
	return records, nil
}

func decodeEntity(record *entityRecord) (models.Entity, error) {
	var entity models.Entity
	switch record.Kind {
	case constants.KindCollection:
		entity = &models.Collection{}
	case constants.KindDeliverableUnit:
		entity = &models.DeliverableUnit{}
	case constants.KindManifestation:
		entity = &models.Manifestation{}
	case constants.KindFile:
		entity = &models.File{}
	case constants.KindEvent:
		entity = &models.Event{}
	default:
		return nil, fmt.Errorf("Archive record %s has unknown kind '%s'", record.Id, record.Kind)
	}
	if err := json.Unmarshal(record.Entity, entity); err != nil {
		return nil, err
	}
	return entity, nil
}

func (archive *Archive) visible(record *entityRecord) bool {
	return !time.Now().UTC().Before(record.IndexedAt)
}

func (archive *Archive) Lookup(id string) (models.Entity, error) {
	record, err := archive.getRecord(id)
	if err != nil || record == nil || !archive.visible(record) {
		return nil, err
	}
	return decodeEntity(record)
}

func (archive *Archive) Query(query *Query, offset, limit int) ([]models.Entity, error) {
	if query == nil {
		return nil, fmt.Errorf("Param query cannot be nil.")
	}
	if offset < 0 {
		offset = 0
	}
	records, err := archive.records()
	if err != nil {
		return nil, err
	}
	matches := make([]models.Entity, 0)
	skipped := 0
	for _, record := range records {
		if limit > 0 && len(matches) >= limit {
			break
		}
		if !archive.visible(record) || (query.Kind != "" && record.Kind != query.Kind) {
			continue
		}
		entity, err := decodeEntity(record)
		if err != nil {
			return nil, err
		}
		if !query.Matches(entity) {
			continue
		}
		if skipped < offset {
			skipped++
			continue
		}
		matches = append(matches, entity)
	}
	return matches, nil
}

func (archive *Archive) GetPackage(id string) (*models.Package, error) {
	record, err := archive.getRecord(id)
	if err != nil || record == nil {
		return nil, err
	}
	reader, err := archive.backend.Get(depositKey(record.DepositId))
	if err != nil {
		return nil, fmt.Errorf("Cannot read deposit %s of %s: %v", record.DepositId, id, err)
	}
	defer reader.Close()
	data, err := ioutil.ReadAll(reader)
	if err != nil {
		return nil, err
	}
	return archive.codec.Deserialize(data)
}

func (archive *Archive) GetFullPackage(id string) (*models.Package, error) {
	records, err := archive.records()
	if err != nil {
		return nil, err
	}
	entities := make(map[string]models.Entity, len(records))
	ordered := make([]models.Entity, 0, len(records))
	for _, record := range records {
		entity, err := decodeEntity(record)
		if err != nil {
			return nil, err
		}
		entities[record.Id] = entity
		ordered = append(ordered, entity)
	}
	if entities[id] == nil {
		return nil, nil
	}

	included := map[string]bool{id: true}
	queue := []string{id}
	for len(queue) > 0 {
		current := entities[queue[0]]
		queue = queue[1:]
		next := make([]string, 0)
		for _, ref := range structuralRefs(current) {
			next = append(next, ref.Ref)
		}
		if du, ok := current.(*models.DeliverableUnit); ok {
			for _, entity := range ordered {
				m, ok := entity.(*models.Manifestation)
				if ok && m.DeliverableUnit != nil && m.DeliverableUnit.Ref == du.Id {
					next = append(next, m.Id)
				}
			}
		}
		for _, target := range next {
			if entities[target] != nil && !included[target] {
				included[target] = true
				queue = append(queue, target)
			}
		}
	}
	for _, entity := range ordered {
		if event, ok := entity.(*models.Event); ok && !included[event.Id] {
			for _, target := range event.TargetIds() {
				if included[target] {
					included[event.Id] = true
					break
				}
			}
		}
	}

	pkg := models.NewPackage()
	for _, entity := range ordered {
		if included[entity.EntityId()] {
			if err = pkg.AddEntity(entity); err != nil {
				return nil, err
			}
		}
	}
	return pkg, nil
}

// structuralRefs leaves out deliverable unit relations, so a full
// package doesn't drag in every earlier version of a unit.
func structuralRefs(entity models.Entity) []*models.Ref {
	switch e := entity.(type) {
	case *models.DeliverableUnit:
		refs := make([]*models.Ref, 0)
		refs = append(refs, e.Parents...)
		refs = append(refs, e.Collections...)
		for _, metadataRef := range e.Metadata {
			if metadataRef != nil && metadataRef.Ref != nil {
				refs = append(refs, metadataRef.Ref)
			}
		}
		return refs
	case *models.Event:
		return nil
	default:
		return entity.Refs()
	}
}

func (archive *Archive) GetContent(id string) (io.ReadCloser, error) {
	record, err := archive.getRecord(id)
	if err != nil {
		return nil, err
	}
	if record == nil || record.ContentKey == "" {
		return nil, fmt.Errorf("No content archived for %s", id)
	}
	return archive.backend.Get(record.ContentKey)
}

func (archive *Archive) ListEntities(kind string) ([]string, error) {
	if !util.StringListContains(constants.EntityKinds, kind) {
		return nil, fmt.Errorf("Unknown entity kind '%s'", kind)
	}
	records, err := archive.records()
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0)
	for _, record := range records {
		if record.Kind == kind {
			ids = append(ids, record.Id)
		}
	}
	return ids, nil
}
