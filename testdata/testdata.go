package testdata

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"github.com/dataconservancy/ingest/constants"
	"github.com/dataconservancy/ingest/models"
	"github.com/icrowley/fake"
	"math"
	mathrand "math/rand"
	"strings"
	"time"
)

// MakePackage returns a package with temporary ids: one collection,
// duCount DUs in that collection, one manifestation per DU, and
// filesPerDu files per manifestation. Every file is extant, has an
// http source and an md5 digest, and has one file.upload event.
func MakePackage(duCount, filesPerDu int) *models.Package {
	pkg := models.NewPackage()
	collection := MakeCollection(RandomTempId("collection"))
	pkg.Collections = append(pkg.Collections, collection)
	for i := 0; i < duCount; i++ {
		du := MakeDeliverableUnit(RandomTempId("du"))
		du.Collections = []*models.Ref{models.NewRef(collection.Id)}
		pkg.DeliverableUnits = append(pkg.DeliverableUnits, du)
		fileIds := make([]string, filesPerDu)
		for j := 0; j < filesPerDu; j++ {
			file := MakeFile(RandomTempId("file"))
			fileIds[j] = file.Id
			pkg.Files = append(pkg.Files, file)
			pkg.Events = append(pkg.Events, MakeEvent(constants.EventFileUpload, file.Id))
		}
		pkg.Manifestations = append(pkg.Manifestations,
			MakeManifestation(RandomTempId("manifestation"), du.Id, fileIds...))
	}
	return pkg
}

func MakeCollection(id string) *models.Collection {
	return &models.Collection{
		Id:    id,
		Title: fake.Sentence(),
		Type:  "Collection",
		Metadata: []*models.MetadataRef{
			{Inline: MakeMetadata()},
		},
	}
}

func MakeDeliverableUnit(id string) *models.DeliverableUnit {
	return &models.DeliverableUnit{
		Id:    id,
		Title: fake.Sentence(),
		Type:  RandomFromList([]string{"Text", "Image", "Sound", "Dataset"}),
		Metadata: []*models.MetadataRef{
			{Inline: MakeMetadata()},
		},
		AlternateIds: []*models.ResourceIdentifier{
			{
				Authority: fake.DomainName(),
				Type:      "local",
				Value:     fake.Word(),
			},
		},
	}
}

func MakeManifestation(id, duId string, fileIds ...string) *models.Manifestation {
	files := make([]*models.ManifestationFile, len(fileIds))
	for i, fileId := range fileIds {
		files[i] = &models.ManifestationFile{
			File: models.NewRef(fileId),
			Path: fmt.Sprintf("data/%d/%s", i, fake.Word()),
		}
	}
	return &models.Manifestation{
		Id:                   id,
		DeliverableUnit:      models.NewRef(duId),
		Type:                 "Original",
		TechnicalEnvironment: []string{fake.ProductName()},
		Files:                files,
	}
}

func MakeFile(id string) *models.File {
	extensions := []string{"jpg", "tiff", "ogg", "txt", "xml", "pdf", "mp3", "mp4"}
	name := fmt.Sprintf("%s.%s", strings.ToLower(fake.Word()), RandomFromList(extensions))
	return &models.File{
		Id:        id,
		Name:      name,
		Source:    fmt.Sprintf("http://%s/%s", fake.DomainName(), name),
		Extant:    true,
		SizeBytes: int64(mathrand.Intn(5000000) + 1),
		Fixity: []*models.Fixity{
			{Algorithm: constants.AlgMd5, Value: RandomHex(16)},
		},
		Formats: []*models.Format{
			{Scheme: constants.FormatSchemeMime, Value: RandomFileFormat()},
		},
	}
}

// MakeEvent returns an event with a temporary id targeting the
// specified entities.
func MakeEvent(eventType string, targets ...string) *models.Event {
	event, _ := models.NewEvent(RandomTempId("event"), eventType)
	event.Date = RandomDateTime()
	event.Outcome = constants.StatusSuccess
	event.Detail = fake.Sentence()
	event.AddTargets(targets...)
	return event
}

func MakeMetadata() *models.Metadata {
	return &models.Metadata{
		SchemaURI: "http://purl.org/dc/elements/1.1/",
		Blob:      fmt.Sprintf("<dc:title>%s</dc:title>", fake.Sentence()),
	}
}

func MakeWorkSummary() *models.WorkSummary {
	summary := models.NewWorkSummary(RandomTempId("sip"))
	summary.AttemptNumber = 1
	summary.StartedAt = RandomDateTime()
	summary.FinishedAt = time.Now().UTC()
	return summary
}

// RandomTempId returns a submitter-style temporary id, such as
// example:/du/3f9a1c.
func RandomTempId(kind string) string {
	return fmt.Sprintf("example:/%s/%s", kind, RandomHex(6))
}

// RandomHex returns n random bytes, hex-encoded.
func RandomHex(n int) string {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		panic(err)
	}
	return hex.EncodeToString(buf)
}

func RandomDateTime() time.Time {
	t := time.Now().UTC()
	minutes := mathrand.Intn(500000) * -1
	return t.Add(time.Duration(minutes) * time.Minute)
}

func RandomAlgorithm() string {
	return RandomFromList(constants.ChecksumAlgorithms)
}

func RandomFileFormat() string {
	formats := []string{"text/plain", "application/pdf", "audio/x-aac",
		"image/tiff", "application/vnd.ms-excel"}
	return RandomFromList(formats)
}

func RandomEventType() string {
	return RandomFromList(constants.EventTypes)
}

func RandomFromList(items []string) string {
	i := int(math.Mod(float64(mathrand.Intn(200)), float64(len(items))))
	return items[i]
}
