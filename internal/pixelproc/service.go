// Package pixelproc provides the bulk pixel-processing service built on the
// worker pool: mask application, blending, edge detection, and color
// replacement, offloaded from the UI thread. Each task is pure, so running
// them on parallel workers is safe.
package pixelproc

import (
	"context"
	"fmt"
	"image"
	"image/color"

	"charactercut/internal/workerpool"
)

// Task type tags dispatched through the pool.
const (
	TaskApplyMask    = "apply-mask"
	TaskBlendImages  = "blend-images"
	TaskEdgeDetect   = "edge-detection"
	TaskColorReplace = "color-replace"
)

type maskRequest struct {
	Image *image.RGBA
	Mask  *image.RGBA
}

type blendRequest struct {
	Dst     *image.RGBA
	Src     *image.RGBA
	Mode    BlendMode
	Opacity float64
}

type edgeRequest struct {
	Image     *image.RGBA
	Threshold float64
}

type colorReplaceRequest struct {
	Image       *image.RGBA
	Target      color.RGBA
	Replacement color.RGBA
	Tolerance   float64
}

// Service runs pixel transformations on a bounded worker pool. Input buffers
// are copied on submission and every result is a fresh allocation, so worker
// and UI-thread buffers never alias.
type Service struct {
	pool *workerpool.Pool
}

// NewService creates a service with its own worker pool. maxWorkers <= 0
// selects the hardware-concurrency-derived default.
func NewService(maxWorkers int) *Service {
	return &Service{pool: workerpool.New(execute, maxWorkers)}
}

// execute dispatches one task to its pure implementation.
func execute(taskType string, input any) (any, error) {
	switch taskType {
	case TaskApplyMask:
		req := input.(maskRequest)
		return applyMask(req.Image, req.Mask)
	case TaskBlendImages:
		req := input.(blendRequest)
		return blendImages(req.Dst, req.Src, req.Mode, req.Opacity)
	case TaskEdgeDetect:
		req := input.(edgeRequest)
		return detectEdges(req.Image, req.Threshold)
	case TaskColorReplace:
		req := input.(colorReplaceRequest)
		return replaceColor(req.Image, req.Target, req.Replacement, req.Tolerance)
	default:
		return nil, fmt.Errorf("unknown task type %q", taskType)
	}
}

// ApplyMask alpha-composites mask onto img.
func (s *Service) ApplyMask(ctx context.Context, img, mask *image.RGBA) (*image.RGBA, error) {
	out, err := s.pool.Process(ctx, TaskApplyMask, maskRequest{Image: copyBuffer(img), Mask: copyBuffer(mask)})
	if err != nil {
		return nil, err
	}
	return out.(*image.RGBA), nil
}

// BlendImages blends src over dst with the given mode and opacity.
func (s *Service) BlendImages(ctx context.Context, dst, src *image.RGBA, mode BlendMode, opacity float64) (*image.RGBA, error) {
	out, err := s.pool.Process(ctx, TaskBlendImages, blendRequest{
		Dst: copyBuffer(dst), Src: copyBuffer(src), Mode: mode, Opacity: opacity,
	})
	if err != nil {
		return nil, err
	}
	return out.(*image.RGBA), nil
}

// DetectEdges computes a threshold-parametrized edge map of img.
func (s *Service) DetectEdges(ctx context.Context, img *image.RGBA, threshold float64) (*image.RGBA, error) {
	out, err := s.pool.Process(ctx, TaskEdgeDetect, edgeRequest{Image: copyBuffer(img), Threshold: threshold})
	if err != nil {
		return nil, err
	}
	return out.(*image.RGBA), nil
}

// ReplaceColor substitutes pixels within tolerance of target by replacement.
func (s *Service) ReplaceColor(ctx context.Context, img *image.RGBA, target, replacement color.RGBA, tolerance float64) (*image.RGBA, error) {
	out, err := s.pool.Process(ctx, TaskColorReplace, colorReplaceRequest{
		Image: copyBuffer(img), Target: target, Replacement: replacement, Tolerance: tolerance,
	})
	if err != nil {
		return nil, err
	}
	return out.(*image.RGBA), nil
}

// Stats returns the underlying pool diagnostics.
func (s *Service) Stats() workerpool.Stats {
	return s.pool.Stats()
}

// Destroy shuts down the worker pool, rejecting outstanding tasks.
func (s *Service) Destroy() {
	s.pool.Destroy()
}

func copyBuffer(img *image.RGBA) *image.RGBA {
	if img == nil {
		return nil
	}
	dst := image.NewRGBA(img.Bounds())
	copy(dst.Pix, img.Pix)
	return dst
}
