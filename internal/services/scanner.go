package services

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/filevault-backend/internal/platform/ctxutil"
	"github.com/yungbote/filevault-backend/internal/platform/logger"
	"github.com/yungbote/filevault-backend/internal/types"
)

const scanChunkSize = 8 * 1024

// ScanEngine is the pluggable signature backend. Engines report what they
// found; the fail-closed policy lives in ScannerService, not in engines.
type ScanEngine interface {
	Name() string
	Scan(ctx context.Context, r io.Reader) ([]string, error)
}

type ScannerService interface {
	// ScanStream never fails open: any engine error yields IsClean=false with
	// the failure reason recorded in Threats.
	ScanStream(ctx context.Context, r io.Reader) types.ScanResult
	// HashContent returns the hex sha256 of the stream, read in bounded chunks.
	HashContent(r io.Reader) (string, error)
}

type scannerService struct {
	log    *logger.Logger
	engine ScanEngine
}

func NewScannerService(log *logger.Logger, engine ScanEngine) (ScannerService, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if engine == nil {
		return nil, fmt.Errorf("scan engine required")
	}
	return &scannerService{
		log:    log.With("service", "ScannerService"),
		engine: engine,
	}, nil
}

func (s *scannerService) ScanStream(ctx context.Context, r io.Reader) types.ScanResult {
	ctx = ctxutil.Default(ctx)
	result := types.ScanResult{
		Scanner:   s.engine.Name(),
		ScanID:    uuid.NewString(),
		ScannedAt: time.Now().UTC(),
	}

	threats, err := s.engine.Scan(ctx, r)
	if err != nil {
		s.log.Error("Scan backend failed, treating file as not clean", "scan_id", result.ScanID, "error", err)
		result.IsClean = false
		result.Threats = []string{fmt.Sprintf("scan failed: %v", err)}
		result.Message = "scan could not be completed; file treated as unsafe"
		return result
	}
	if len(threats) > 0 {
		result.IsClean = false
		result.Threats = threats
		result.Message = "threats detected"
		return result
	}

	result.IsClean = true
	result.Message = "no threats detected"
	return result
}

func (s *scannerService) HashContent(r io.Reader) (string, error) {
	h := sha256.New()
	buf := make([]byte, scanChunkSize)
	if _, err := io.CopyBuffer(h, r, buf); err != nil {
		return "", fmt.Errorf("hash content: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// eicarSignature is the standard anti-virus test string.
const eicarSignature = `X5O!P%@AP[4\PZX54(P^)7CC)7}$EICAR-STANDARD-ANTIVIRUS-TEST-FILE!$H+H*`

// signatureEngine is a local byte-signature matcher. It reads the stream in
// bounded chunks, keeping a small overlap so signatures spanning a chunk
// boundary are still found.
type signatureEngine struct {
	signatures map[string][]byte
}

func NewSignatureEngine() ScanEngine {
	return &signatureEngine{
		signatures: map[string][]byte{
			"EICAR-Test-File": []byte(eicarSignature),
			"Test-Virus-Mark": []byte("VIRUS"),
		},
	}
}

func (e *signatureEngine) Name() string {
	return "signature-engine/v1"
}

func (e *signatureEngine) Scan(ctx context.Context, r io.Reader) ([]string, error) {
	maxSigLen := 0
	for _, sig := range e.signatures {
		if len(sig) > maxSigLen {
			maxSigLen = len(sig)
		}
	}

	found := map[string]struct{}{}
	carry := make([]byte, 0, maxSigLen)
	buf := make([]byte, scanChunkSize)
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		n, err := r.Read(buf)
		if n > 0 {
			window := make([]byte, 0, len(carry)+n)
			window = append(window, carry...)
			window = append(window, buf[:n]...)
			for name, sig := range e.signatures {
				if bytes.Contains(window, sig) {
					found[name] = struct{}{}
				}
			}
			keep := len(window)
			if maxSigLen > 0 && keep > maxSigLen-1 {
				keep = maxSigLen - 1
			}
			carry = append(carry[:0], window[len(window)-keep:]...)
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
	}

	threats := make([]string, 0, len(found))
	for name := range found {
		threats = append(threats, name)
	}
	return threats, nil
}
