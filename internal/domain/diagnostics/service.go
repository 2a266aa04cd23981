// Package diagnostics drives the inference pipeline: scan upload with
// classification and attribution, and on-demand lesion segmentation. It sits
// on top of the clinical domain, which owns the patient/case/scan records the
// pipeline reads and writes.
package diagnostics

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/brainalyze/brainalyze/internal/domain/clinical"
	"github.com/brainalyze/brainalyze/internal/platform/inference"
	"github.com/brainalyze/brainalyze/internal/platform/storage"
)

// TxRunner executes fn atomically against the metadata store. Production
// wires this to db.WithTx; tests run fn directly.
type TxRunner func(ctx context.Context, fn func(ctx context.Context) error) error

// UploadRequest carries one scan upload. A Nil CaseID starts a new case for
// the patient; the uploaded scan becomes its founding scan, so a case never
// exists without at least one image behind it.
type UploadRequest struct {
	PatientID     uuid.UUID
	CaseID        uuid.UUID
	RadiologistID uuid.UUID
	Filename      string
	Description   string
	TreatmentPlan string
	Image         io.Reader
}

// UploadResult reports what the pipeline produced.
type UploadResult struct {
	Scan       *clinical.Scan       `json:"scan"`
	Case       *clinical.Case       `json:"case,omitempty"`
	Prediction inference.Prediction `json:"prediction"`
}

type Service struct {
	classifier *inference.Classifier
	attributor *inference.Attributor
	segmenter  *inference.Segmenter
	artifacts  storage.ArtifactStore
	clinical   *clinical.Service
	atomically TxRunner
	logger     zerolog.Logger
}

func NewService(
	classifier *inference.Classifier,
	attributor *inference.Attributor,
	segmenter *inference.Segmenter,
	artifacts storage.ArtifactStore,
	clinicalSvc *clinical.Service,
	atomically TxRunner,
	logger zerolog.Logger,
) *Service {
	return &Service{
		classifier: classifier,
		attributor: attributor,
		segmenter:  segmenter,
		artifacts:  artifacts,
		clinical:   clinicalSvc,
		atomically: atomically,
		logger:     logger,
	}
}

// NormalizeConfidence maps confidence values onto a uniform 0-100 scale.
// Values at or below 1 are treated as probabilities and scaled up; anything
// larger is assumed to be a percentage already.
func NormalizeConfidence(v float64) float64 {
	if v <= 1 {
		return v * 100
	}
	return v
}

// UploadScan runs the full intake pipeline: classify the image, render its
// attribution heat map, persist both artifacts, then record the scan (and,
// for a Nil CaseID, its new case) in one transaction. Inference and artifact
// failures leave no scan record behind; a metadata failure after the
// artifacts were written cleans them up again.
func (s *Service) UploadScan(ctx context.Context, req UploadRequest) (*UploadResult, error) {
	if req.Image == nil {
		return nil, fmt.Errorf("%w: scan image is required", clinical.ErrValidation)
	}
	ext := strings.ToLower(filepath.Ext(req.Filename))
	if !storage.AllowedImageExtensions[ext] {
		return nil, fmt.Errorf("%w: unsupported image extension %q", clinical.ErrValidation, ext)
	}

	data, err := io.ReadAll(req.Image)
	if err != nil {
		return nil, fmt.Errorf("read scan image: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: scan image is empty", clinical.ErrValidation)
	}

	pred, err := s.classifier.Classify(ctx, bytes.NewReader(data))
	if err != nil {
		// Undecodable input and missing models stay inference errors;
		// the handler maps them to their own status codes.
		return nil, fmt.Errorf("classify scan: %w", err)
	}
	pred.Confidence = NormalizeConfidence(pred.Confidence)

	heat, err := s.attributor.Explain(ctx, bytes.NewReader(data), pred.Index)
	if err != nil {
		return nil, err
	}

	scanID := uuid.New()
	imagePath, err := s.artifacts.Save(ctx, storage.KindScan, scanID.String()+ext, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("store scan image: %w", err)
	}

	var heatBuf bytes.Buffer
	if err := imaging.Encode(&heatBuf, heat, imaging.PNG); err != nil {
		s.discardArtifacts(ctx, imagePath)
		return nil, fmt.Errorf("encode heat map: %w", err)
	}
	heatmapPath, err := s.artifacts.Save(ctx, storage.KindHeatmap, "heatmap_"+scanID.String()+".png", &heatBuf)
	if err != nil {
		s.discardArtifacts(ctx, imagePath)
		return nil, fmt.Errorf("store heat map: %w", err)
	}

	result := &UploadResult{Prediction: pred}
	scan := &clinical.Scan{
		ID:              scanID,
		CaseID:          req.CaseID,
		PatientID:       req.PatientID,
		UploadedBy:      &req.RadiologistID,
		ImagePath:       imagePath,
		Classification:  pred.Label,
		ConfidenceScore: pred.Confidence,
		HeatmapPath:     heatmapPath,
		Description:     req.Description,
		UploadDate:      time.Now(),
	}

	err = s.atomically(ctx, func(ctx context.Context) error {
		if scan.CaseID == uuid.Nil {
			c, err := s.clinical.StartCase(ctx, req.PatientID, req.TreatmentPlan)
			if err != nil {
				return err
			}
			scan.CaseID = c.ID
			result.Case = c
		}
		return s.clinical.AttachScan(ctx, scan)
	})
	if err != nil {
		s.discardArtifacts(ctx, imagePath, heatmapPath)
		return nil, err
	}

	result.Scan = scan
	return result, nil
}

// discardArtifacts best-effort removes artifacts written before a failed
// upload.
func (s *Service) discardArtifacts(ctx context.Context, paths ...string) {
	for _, path := range paths {
		if err := s.artifacts.Delete(ctx, path); err != nil {
			s.logger.Warn().Err(err).Str("artifact", path).
				Msg("could not remove artifact of failed upload")
		}
	}
}

// RunSegmentation generates the scan's lesion mask and records its path.
// The mask file name is derived from the scan ID, so rerunning segmentation
// overwrites the same artifact with identical bytes rather than accumulating
// copies.
func (s *Service) RunSegmentation(ctx context.Context, scanID uuid.UUID) (*clinical.Scan, error) {
	scan, err := s.clinical.GetScan(ctx, scanID)
	if err != nil {
		return nil, err
	}

	src, err := s.artifacts.Open(ctx, scan.ImagePath)
	if err != nil {
		if errors.Is(err, storage.ErrArtifactNotFound) {
			return nil, fmt.Errorf("scan image %s: %w", scan.ImagePath, clinical.ErrNotFound)
		}
		return nil, err
	}
	defer src.Close()

	mask, err := s.segmenter.Segment(ctx, src)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, mask, imaging.PNG); err != nil {
		return nil, fmt.Errorf("encode mask: %w", err)
	}
	maskPath, err := s.artifacts.Save(ctx, storage.KindMask, "mask_"+scanID.String()+".png", &buf)
	if err != nil {
		return nil, fmt.Errorf("store mask: %w", err)
	}

	if err := s.clinical.SetScanMask(ctx, scanID, maskPath); err != nil {
		return nil, err
	}
	scan.MaskPath = maskPath
	return scan, nil
}

// Artifact kinds addressable through OpenArtifact.
const (
	ArtifactImage   = "image"
	ArtifactHeatmap = "heatmap"
	ArtifactMask    = "mask"
)

// OpenArtifact streams one of the scan's stored images. The returned content
// type reflects the artifact's file extension.
func (s *Service) OpenArtifact(ctx context.Context, scanID uuid.UUID, kind string) (io.ReadCloser, string, error) {
	scan, err := s.clinical.GetScan(ctx, scanID)
	if err != nil {
		return nil, "", err
	}

	var path string
	switch kind {
	case ArtifactImage:
		path = scan.ImagePath
	case ArtifactHeatmap:
		path = scan.HeatmapPath
	case ArtifactMask:
		path = scan.MaskPath
	default:
		return nil, "", fmt.Errorf("%w: unknown artifact kind %q", clinical.ErrValidation, kind)
	}
	if path == "" {
		return nil, "", fmt.Errorf("scan %s has no %s artifact: %w", scanID, kind, clinical.ErrNotFound)
	}

	rc, err := s.artifacts.Open(ctx, path)
	if err != nil {
		if errors.Is(err, storage.ErrArtifactNotFound) {
			return nil, "", fmt.Errorf("artifact %s: %w", path, clinical.ErrNotFound)
		}
		return nil, "", err
	}

	contentType := "image/png"
	if ext := strings.ToLower(filepath.Ext(path)); ext == ".jpg" || ext == ".jpeg" {
		contentType = "image/jpeg"
	}
	return rc, contentType, nil
}
