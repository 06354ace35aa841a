package service

import (
	"sort"

	"teachtrack_backend/internal/model"
)

type Trend string

const (
	TrendImproving    Trend = "improving"
	TrendDeclining    Trend = "declining"
	TrendStable       Trend = "stable"
	TrendInconsistent Trend = "inconsistent"
)

type RiskTier string

const (
	RiskLow      RiskTier = "low"
	RiskMedium   RiskTier = "medium"
	RiskHigh     RiskTier = "high"
	RiskCritical RiskTier = "critical"
)

// PerformanceReport 单个学生的表现分类，作为差异化教学提示词的输入
type PerformanceReport struct {
	StudentID  uint     `json:"studentId"`
	Name       string   `json:"name"`
	Average    float64  `json:"average"`
	Trend      Trend    `json:"trend"`
	Risk       RiskTier `json:"risk"`
	Strengths  []string `json:"strengths"`
	Weaknesses []string `json:"weaknesses"`
	ScoreCount int      `json:"scoreCount"`
}

// ClassifyTrend 按时间顺序的百分比成绩划分趋势。
// 最近4次为近窗口，再往前至多4次为前窗口；
// 近窗口方差超过400先判为 inconsistent，否则按两窗口均值差判断，
// 上升或下降达到5分视为趋势变动。少于3次成绩一律 stable。
func ClassifyTrend(scores []float64) Trend {
	if len(scores) < 3 {
		return TrendStable
	}

	recentStart := len(scores) - 4
	if recentStart < 0 {
		recentStart = 0
	}
	recent := scores[recentStart:]

	prevStart := recentStart - 4
	if prevStart < 0 {
		prevStart = 0
	}
	previous := scores[prevStart:recentStart]

	if variance(recent) > 400 {
		return TrendInconsistent
	}

	if len(previous) == 0 {
		return TrendStable
	}

	diff := mean(recent) - mean(previous)
	if diff >= 5 {
		return TrendImproving
	}
	if diff <= -5 {
		return TrendDeclining
	}
	return TrendStable
}

// ClassifyRisk 由总体均分和趋势推出风险等级
func ClassifyRisk(average float64, trend Trend) RiskTier {
	if average < 50 || (trend == TrendDeclining && average < 70) {
		return RiskCritical
	}
	if average < 65 || trend == TrendDeclining {
		return RiskHigh
	}
	if average < 75 || trend == TrendInconsistent {
		return RiskMedium
	}
	return RiskLow
}

// SubjectStrengths 各科均分与学生自身跨科均分比较，高出10分以上为强项，低10分以上为弱项
func SubjectStrengths(subjectScores map[string][]float64) (strengths, weaknesses []string) {
	if len(subjectScores) == 0 {
		return nil, nil
	}

	var all []float64
	for _, ss := range subjectScores {
		all = append(all, ss...)
	}
	overall := mean(all)

	for subject, ss := range subjectScores {
		if len(ss) == 0 {
			continue
		}
		avg := mean(ss)
		if avg-overall > 10 {
			strengths = append(strengths, subject)
		} else if overall-avg > 10 {
			weaknesses = append(weaknesses, subject)
		}
	}

	sort.Strings(strengths)
	sort.Strings(weaknesses)
	return strengths, weaknesses
}

// ClassifyPerformance 汇总一名学生的全部成绩记录（须已按日期升序）
func ClassifyPerformance(student *model.Student, scores []model.StudentScore) PerformanceReport {
	report := PerformanceReport{
		StudentID:  student.ID,
		Name:       student.Name,
		Trend:      TrendStable,
		Risk:       RiskLow,
		ScoreCount: len(scores),
	}

	if len(scores) == 0 {
		return report
	}

	values := make([]float64, len(scores))
	subjectScores := make(map[string][]float64)
	for i, s := range scores {
		values[i] = s.Percentage
		if s.Subject != "" {
			subjectScores[s.Subject] = append(subjectScores[s.Subject], s.Percentage)
		}
	}

	report.Average = mean(values)
	report.Trend = ClassifyTrend(values)
	report.Risk = ClassifyRisk(report.Average, report.Trend)
	report.Strengths, report.Weaknesses = SubjectStrengths(subjectScores)

	return report
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// variance 总体方差（百分点的平方）
func variance(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	m := mean(values)
	var sum float64
	for _, v := range values {
		d := v - m
		sum += d * d
	}
	return sum / float64(len(values))
}
