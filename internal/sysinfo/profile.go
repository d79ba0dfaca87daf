package sysinfo

import (
	"context"
	"os"
	"os/exec"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/tofan79/autoclipper-backend/internal/logger"
)

// Profile is the auto-detected processing tier. Stability first,
// speed second.
type Profile struct {
	Name              string `json:"name"`
	WhisperModel      string `json:"whisper_model"`
	FfmpegPreset      string `json:"ffmpeg_preset"`
	FfmpegThreads     int    `json:"ffmpeg_threads"`
	MaxConcurrentJobs int    `json:"max_concurrent_jobs"`
	GPUAvailable      bool   `json:"gpu_available"`
}

// DetectProfile sizes the pipeline for the host it runs on.
func DetectProfile(log *logger.Logger) Profile {
	ramGB := detectRAMGB()
	cores := runtime.NumCPU()
	gpu := DetectNvidiaGPU(context.Background())

	var p Profile
	switch {
	case ramGB < 10 && cores <= 4:
		p = Profile{Name: "minimum", WhisperModel: "tiny", FfmpegPreset: "ultrafast", FfmpegThreads: 2, MaxConcurrentJobs: 1}
	case ramGB < 20:
		p = Profile{Name: "standard", WhisperModel: "small", FfmpegPreset: "fast", FfmpegThreads: 4, MaxConcurrentJobs: 1}
	default:
		p = Profile{Name: "high", WhisperModel: "medium", FfmpegPreset: "veryfast", FfmpegThreads: 0, MaxConcurrentJobs: 2}
	}
	p.GPUAvailable = gpu
	log.Info("Detected system profile",
		"profile", p.Name, "ram_gb", int(ramGB), "cores", cores, "gpu", gpu)
	return p
}

// DetectNvidiaGPU reports whether nvidia-smi answers.
func DetectNvidiaGPU(ctx context.Context) bool {
	if _, err := exec.LookPath("nvidia-smi"); err != nil {
		return false
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return exec.CommandContext(ctx, "nvidia-smi", "-L").Run() == nil
}

// detectRAMGB reads total memory from /proc/meminfo; on platforms
// without it, returns a conservative 8 GiB.
func detectRAMGB() float64 {
	data, err := os.ReadFile("/proc/meminfo")
	if err != nil {
		return 8.0
	}
	for _, line := range strings.Split(string(data), "\n") {
		if !strings.HasPrefix(line, "MemTotal:") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			break
		}
		kb, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			break
		}
		return kb / (1024 * 1024)
	}
	return 8.0
}
