package ingest

import (
	"github.com/dataconservancy/ingest/constants"
	"github.com/dataconservancy/ingest/context"
	"github.com/dataconservancy/ingest/models"
	"github.com/dataconservancy/ingest/network"
)

// VirusChecker scans every extant file with every configured scanner
// and records a virus.scan event for each scan. An infected file does
// not stop ingest. A scanner that can't be reached does.
type VirusChecker struct {
	stageBase
}

func NewVirusChecker(_context *context.Context) *VirusChecker {
	return &VirusChecker{stageBase{name: constants.StageVirusCheck, context: _context}}
}

func (checker *VirusChecker) Execute(packageRef string) error {
	checker.logStart(packageRef)
	return checker.withPackage(packageRef, checker.scan)
}

func (checker *VirusChecker) scan(ref string, pkg *models.Package) (*models.Package, []*models.Event, error) {
	events := make([]*models.Event, 0)
	if len(checker.context.VirusScanners) == 0 {
		return nil, nil, nil
	}
	logged, err := checker.context.EventLog.GetEvents(ref, constants.EventVirusScan)
	if err != nil {
		return nil, nil, checker.transientError(ref, err, "cannot read event log")
	}
	for _, file := range pkg.Files {
		if !file.Extant || file.Source == "" {
			continue
		}
		for _, scanner := range checker.context.VirusScanners {
			if alreadyScanned(logged, file.Id, scanner.Name()) {
				continue
			}
			event, err := checker.scanFile(ref, file, scanner)
			if err != nil {
				return nil, nil, err
			}
			events = append(events, event)
		}
	}
	checker.logDone(ref, "%d scans", len(events))
	return nil, events, nil
}

func alreadyScanned(logged []*models.Event, fileId, scannerName string) bool {
	for _, event := range logged {
		if event.Agent == scannerName && event.HasTarget(fileId) {
			return true
		}
	}
	return false
}

func (checker *VirusChecker) scanFile(ref string, file *models.File, scanner network.VirusScanner) (*models.Event, error) {
	scannerName := scanner.Name()
	reader, err := checker.context.Content.OpenContent(file.Source)
	if err != nil {
		return nil, checker.transientError(ref, err, "cannot open content of file %s", file.Id)
	}
	defer reader.Close()
	result, err := scanner.Scan(reader)
	if err != nil {
		return nil, checker.transientError(ref, err, "%s could not scan file %s", scannerName, file.Id)
	}
	event, err := checker.newEvent(ref, constants.EventVirusScan, file.Id)
	if err != nil {
		return nil, err
	}
	event.Outcome = result.Outcome()
	event.Agent = scannerName
	if result.Infected {
		event.Detail = result.Signature
		checker.context.MessageLog.Warning("%s found %s in file %s of package %s",
			scannerName, result.Signature, file.Id, ref)
	}
	return event, nil
}
