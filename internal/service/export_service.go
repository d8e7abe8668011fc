package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"courtmate/backend/internal/model"
	"courtmate/backend/internal/repository"
	pkgerrors "courtmate/backend/pkg/errors"
)

// ── 导出模块业务错误 ──

var (
	ErrExportForbidden    = pkgerrors.New(pkgerrors.KindPermission, "无权导出该约球局")
	ErrExportGenerateFail = errors.New("生成导出文件失败")
)

const calendarProductID = "-//courtmate//slot calendar//CN"

// ExportService 导出业务接口
//
// 导出以 bytes.Buffer 返回，由 Handler 层设置 HTTP 响应头后写入 Response
type ExportService interface {
	// ExportRoster 主办人导出成员名单 (.xlsx)
	ExportRoster(ctx context.Context, slotID, callerID string) (*bytes.Buffer, string, error)
	// ExportCalendar 主办人或参与者导出日历事件 (.ics)
	ExportCalendar(ctx context.Context, slotID, callerID string) (*bytes.Buffer, string, error)
}

type exportService struct {
	repo   *repository.Repository
	logger *zap.Logger
	now    func() time.Time
}

// NewExportService 创建 ExportService 实例
func NewExportService(repo *repository.Repository, logger *zap.Logger) ExportService {
	return &exportService{repo: repo, logger: logger, now: time.Now}
}

// ═══════════════════════════════════════════════════════════
// ExportRoster — 导出成员名单为 Excel
// ═══════════════════════════════════════════════════════════
//
// 输出格式：
//   - 标题行：运动 · 球场 · 时间
//   - 表头：序号 | 身份 | 昵称 | 性别 | 等级 | NTRP | 信用分 | 场次
//   - 第一行为主办人，其后按加入顺序列出参与者

func (s *exportService) ExportRoster(ctx context.Context, slotID, callerID string) (*bytes.Buffer, string, error) {
	slot, err := s.getSlot(ctx, slotID)
	if err != nil {
		return nil, "", err
	}
	if slot.HostID != callerID {
		return nil, "", ErrExportForbidden
	}

	ids := append([]string{slot.HostID}, slot.Participants...)
	users, err := s.repo.User.ListByIDs(ctx, ids)
	if err != nil {
		s.logger.Error("查询成员信息失败", zap.String("slot_id", slotID), zap.Error(err))
		return nil, "", err
	}
	byID := usersByID(users)

	f := excelize.NewFile()
	defer f.Close()

	sheetName := "成员名单"
	idx, _ := f.NewSheet(sheetName)
	f.SetActiveSheet(idx)
	// 删除默认 Sheet1
	f.DeleteSheet("Sheet1")

	f.SetColWidth(sheetName, "A", "A", 6)
	f.SetColWidth(sheetName, "B", "B", 10)
	f.SetColWidth(sheetName, "C", "C", 20)
	f.SetColWidth(sheetName, "D", "H", 10)

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})

	// 标题行
	title := fmt.Sprintf("%s · %s · %s", slot.Sport, slot.VenueName, slot.StartAt.Format("2006-01-02 15:04"))
	f.SetCellValue(sheetName, "A1", title)
	f.MergeCell(sheetName, "A1", "H1")
	f.SetCellStyle(sheetName, "A1", "A1", headerStyle)

	// 表头
	headers := []string{"序号", "身份", "昵称", "性别", "等级", "NTRP", "信用分", "场次"}
	for i, h := range headers {
		f.SetCellValue(sheetName, cell(colName(i), 2), h)
	}
	f.SetCellStyle(sheetName, "A2", "H2", headerStyle)

	// 数据行
	row := 3
	for i, id := range ids {
		role := "参与者"
		if i == 0 {
			role = "主办人"
		}
		values := []interface{}{i + 1, role, "已注销", "-", "-", "-", "-", "-"}
		if u, ok := byID[id]; ok {
			values[2] = u.NickName
			values[3] = genderText(u.Gender)
			values[6] = u.CreditScore
			values[7] = u.TotalGames
			if lv := u.LevelFor(slot.Sport); lv != nil {
				values[4] = lv.Simple
				if lv.NTRP != nil {
					values[5] = fmt.Sprintf("%.1f", *lv.NTRP)
				}
			}
		}
		for col, v := range values {
			f.SetCellValue(sheetName, cell(colName(col), row), v)
		}
		row++
	}

	// 写入 buffer
	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		s.logger.Error("写入 Excel 失败", zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}

	filename := fmt.Sprintf("成员名单_%s_%s.xlsx", slot.VenueName, slot.StartAt.Format("20060102"))
	return buf, filename, nil
}

// ═══════════════════════════════════════════════════════════
// ExportCalendar — 导出单个 VEVENT 日历
// ═══════════════════════════════════════════════════════════

func (s *exportService) ExportCalendar(ctx context.Context, slotID, callerID string) (*bytes.Buffer, string, error) {
	slot, err := s.getSlot(ctx, slotID)
	if err != nil {
		return nil, "", err
	}
	if slot.HostID != callerID && !slot.HasParticipant(callerID) {
		return nil, "", ErrExportForbidden
	}

	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId(calendarProductID)

	event := cal.AddEvent(slot.SlotID + "@courtmate")
	event.SetDtStampTime(s.now().UTC())
	event.SetCreatedTime(slot.CreatedAt.UTC())
	event.SetStartAt(slot.StartAt.UTC())
	event.SetEndAt(slot.EndAt().UTC())
	event.SetSummary(calendarSummary(slot))
	event.SetLocation(slot.VenueName)
	if slot.Description != "" {
		event.SetDescription(slot.Description)
	}
	status := "CONFIRMED"
	if slot.Status == model.SlotCancelled {
		status = "CANCELLED"
	}
	event.SetProperty(ics.ComponentPropertyStatus, status)

	buf := bytes.NewBufferString(cal.Serialize())
	filename := fmt.Sprintf("slot_%s.ics", slot.SlotID)
	return buf, filename, nil
}

// ── 辅助函数 ──

func (s *exportService) getSlot(ctx context.Context, slotID string) (*model.Slot, error) {
	slot, err := s.repo.Slot.GetByID(ctx, slotID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSlotNotFound
		}
		s.logger.Error("查询约球局失败", zap.String("slot_id", slotID), zap.Error(err))
		return nil, err
	}
	return slot, nil
}

func calendarSummary(slot *model.Slot) string {
	parts := []string{sportText(slot.Sport)}
	if len(slot.SimpleLevels) > 0 {
		parts = append(parts, strings.Join(slot.SimpleLevels, "/"))
	}
	parts = append(parts, fmt.Sprintf("%d/%d 人", slot.CurrentCount, slot.NeedCount))
	return strings.Join(parts, " · ")
}

func sportText(sport string) string {
	switch sport {
	case model.SportTennis:
		return "网球"
	case model.SportBadminton:
		return "羽毛球"
	case model.SportSquash:
		return "壁球"
	}
	return sport
}

func genderText(g int) string {
	switch g {
	case model.GenderMale:
		return "男"
	case model.GenderFemale:
		return "女"
	}
	return "-"
}

func colName(idx int) string {
	name, _ := excelize.ColumnNumberToName(idx + 1)
	return name
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}
