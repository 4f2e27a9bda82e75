package pipeline

import iface "MicroDetServer/interface"

// Summarize computes the per-request statistics. Every configured class is
// always present in CountsByType, with an explicit zero when absent. An
// empty detection list yields all-zero statistics rather than an error.
func Summarize(dets []iface.Detection, demoMode bool, classTable []string) iface.Summary {
	counts := make(map[string]int, len(classTable))
	for _, name := range classTable {
		counts[name] = 0
	}

	var sum, maxConf float64
	for _, d := range dets {
		counts[d.ClassName]++
		sum += d.Confidence
		if d.Confidence > maxConf {
			maxConf = d.Confidence
		}
	}

	s := iface.Summary{
		TotalParticles: len(dets),
		CountsByType:   counts,
		DemoMode:       demoMode,
	}
	if len(dets) > 0 {
		s.AvgConfidence = round(sum/float64(len(dets)), 4)
		s.MaxConfidence = maxConf
	}
	return s
}
