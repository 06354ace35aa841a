// 手动重算测评总分与预计时长脚本
//
// 总分与时长在题目增删改时会自动重算。此脚本用于存量数据修复，
// 例如题型时长估算规则调整后批量刷新历史测评。
//
// 用法: go run scripts/recalc_totals.go
package main

import (
	"log"
	"os"

	"teachtrack_backend/internal/config"
	"teachtrack_backend/internal/model"
	"teachtrack_backend/internal/service"
	"teachtrack_backend/pkg/database"
	"teachtrack_backend/pkg/logger"

	"gopkg.in/yaml.v3"
)

func main() {
	data, err := os.ReadFile("configs/config.yaml")
	if err != nil {
		log.Fatalf("无法读取配置文件: %v", err)
	}

	var cfg config.Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		log.Fatalf("解析配置文件失败: %v", err)
	}

	logger.InitLogger(&cfg)

	db, err := database.InitDB(&cfg.Database, false)
	if err != nil {
		log.Fatalf("数据库连接失败: %v", err)
	}

	var assessments []model.Assessment
	if err := db.Preload("Questions").Find(&assessments).Error; err != nil {
		log.Fatalf("读取测评失败: %v", err)
	}

	updated := 0
	for i := range assessments {
		a := &assessments[i]
		oldPoints, oldDuration := a.TotalPoints, a.EstimatedDuration
		service.RecalcAssessmentTotals(a)
		if a.TotalPoints == oldPoints && a.EstimatedDuration == oldDuration {
			continue
		}
		if err := db.Model(a).Updates(map[string]interface{}{
			"total_points":       a.TotalPoints,
			"estimated_duration": a.EstimatedDuration,
		}).Error; err != nil {
			log.Printf("更新测评 %s 失败: %v", a.ID, err)
			continue
		}
		updated++
	}

	log.Printf("重算完成，共 %d 条测评，更新 %d 条", len(assessments), updated)
}
