package system

import (
	"math"

	"github.com/shirou/gopsutil/v3/mem"
	"go.uber.org/zap"
)

// memoryShare is the fraction of available memory a single export raster may take.
const memoryShare = 0.25

var availableMemory = func() (uint64, error) {
	vm, err := mem.VirtualMemory()
	if err != nil {
		return 0, err
	}
	return vm.Available, nil
}

// ClampDPI lowers dpi until an RGBA raster of a page measured in points
// (1/72 inch) fits the memory budget. When memory cannot be read dpi is
// returned unchanged.
func ClampDPI(dpi int, widthPt, heightPt float64) int {
	if dpi <= 0 || widthPt <= 0 || heightPt <= 0 {
		return dpi
	}

	avail, err := availableMemory()
	if err != nil {
		Logger.Warn("failed to read available memory", zap.Error(err))
		return dpi
	}

	budget := float64(avail) * memoryShare
	need := rasterBytes(dpi, widthPt, heightPt)
	if need <= budget {
		return dpi
	}

	// bytes grow with dpi², so scale by the square root of the ratio
	clamped := int(math.Floor(float64(dpi) * math.Sqrt(budget/need)))
	if clamped < 36 {
		clamped = 36
	}
	Logger.Info("export dpi clamped to memory budget",
		zap.Int("requested", dpi),
		zap.Int("clamped", clamped),
		zap.Uint64("available", avail))
	return clamped
}

func rasterBytes(dpi int, widthPt, heightPt float64) float64 {
	scale := float64(dpi) / 72.0
	return widthPt * scale * heightPt * scale * 4
}
