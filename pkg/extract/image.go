package extract

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/disintegration/imaging"
)

// extractImage runs OCR against a cleaned-up grayscale rendition of the
// image and, when a captioner is configured, appends a structured
// description generated from the OCR text. A caption failure degrades
// to OCR-only output; an OCR failure fails the image pathway.
func (e *Extractor) extractImage(ctx context.Context, filePath string) (string, error) {
	cleaned, err := e.preprocessImage(filePath)
	if err != nil {
		return "", fmt.Errorf("preprocess image: %w", err)
	}
	defer os.Remove(cleaned)

	ocrText, err := e.runOCR(ctx, cleaned)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrOCRUnavailable, err)
	}

	captioner := e.config.Captioner
	if captioner == nil || !captioner.Enabled() {
		return "OCR Text:\n" + ocrText, nil
	}

	description, err := captioner.Describe(ctx, ocrText)
	if err != nil {
		return fmt.Sprintf("OCR Text:\n%s\n\nNote: AI description generation failed", ocrText), nil
	}

	return fmt.Sprintf("OCR Text:\n%s\n\nAI Description:\n%s", ocrText, description), nil
}

// preprocessImage writes a denoised, contrast-enhanced grayscale copy
// of the source image to a temp file and returns its path.
func (e *Extractor) preprocessImage(filePath string) (string, error) {
	img, err := imaging.Open(filePath)
	if err != nil {
		return "", err
	}

	gray := imaging.Grayscale(img)
	denoised := imaging.Blur(gray, 0.5)
	enhanced := imaging.AdjustContrast(denoised, 20)

	tmp, err := os.CreateTemp("", "docstack-ocr-*.png")
	if err != nil {
		return "", err
	}
	tmpPath := tmp.Name()
	tmp.Close()

	if err := imaging.Save(enhanced, tmpPath); err != nil {
		os.Remove(tmpPath)
		return "", err
	}
	return tmpPath, nil
}

// runOCR extracts text assuming a uniform block of text first, retrying
// with automatic page segmentation when that yields nothing.
func (e *Extractor) runOCR(ctx context.Context, imagePath string) (string, error) {
	out, err := e.config.Runner.Run(ctx, e.config.TesseractBin, imagePath, "stdout", "--psm", "6")
	if err != nil {
		return "", err
	}

	text := strings.TrimSpace(string(out))
	if text == "" {
		out, err = e.config.Runner.Run(ctx, e.config.TesseractBin, imagePath, "stdout", "--psm", "3")
		if err != nil {
			return "", err
		}
		text = strings.TrimSpace(string(out))
	}

	return text, nil
}
