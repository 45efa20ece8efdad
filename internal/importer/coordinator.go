package importer

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"ehr/internal/diff"
	"ehr/internal/model"
	"ehr/internal/parser"
	"ehr/internal/reconciler"
)

// Store 导入所需的记录、快照与历史存储
type Store interface {
	reconciler.Repository
	reconciler.SnapshotRepository
	diff.HistoryStore
}

// UploadLog 上传日志；dry-run 时为 nil
type UploadLog interface {
	CreateUpload(filename string, fileSize int64, fileHash string) (string, error)
	MarkUploadProcessing(id string, fileType model.FileType) error
	FinishUpload(id string, status model.UploadStatus, total, success, errorCount int, reportDate *time.Time, errorMessage string) error
	RecordImport(at time.Time, reportDate time.Time) error
}

// Coordinator 导入协调器：分类、扫描、对账、计算差异，一次调用内同步完成
type Coordinator struct {
	store      Store
	uploads    UploadLog
	classifier *parser.FileClassifier
	dates      *parser.DateResolver
	registry   *parser.TemplateRegistry
	companies  *parser.CompanyNormalizer

	headerSearchRows     int
	rejectUnresolvedDate bool
}

// Options 协调器选项
type Options struct {
	Registry             *parser.TemplateRegistry
	HeaderSearchRows     int
	RejectUnresolvedDate bool
	Now                  func() time.Time
}

// NewCoordinator 创建导入协调器；uploads 可为 nil
func NewCoordinator(store Store, uploads UploadLog, opts Options) *Coordinator {
	registry := opts.Registry
	if registry == nil {
		registry = parser.DefaultTemplates()
	}
	dates := parser.NewDateResolver()
	if opts.Now != nil {
		dates.Now = opts.Now
	}
	return &Coordinator{
		store:                store,
		uploads:              uploads,
		classifier:           parser.NewFileClassifier(registry.Names()),
		dates:                dates,
		registry:             registry,
		companies:            parser.NewCompanyNormalizer(nil),
		headerSearchRows:     opts.HeaderSearchRows,
		rejectUnresolvedDate: opts.RejectUnresolvedDate,
	}
}

// ImportOptions 单次导入参数
type ImportOptions struct {
	FilePath         string
	OriginalFilename string         // 上传时的原始文件名，为空则取 FilePath 的文件名
	FileType         model.FileType // 非空时跳过自动分类
	Progress         func(ProgressEvent)
}

// ProgressEvent 进度事件
type ProgressEvent struct {
	Type      string      `json:"type"`    // start/classified/scanned/reconciled/done/error
	Message   string      `json:"message"` // 事件消息
	Data      interface{} `json:"data,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// ImportReport 导入结果
type ImportReport struct {
	UploadID     string             `json:"uploadId"`
	Filename     string             `json:"filename"`
	FileType     model.FileType     `json:"fileType"`
	Status       model.UploadStatus `json:"status"`
	ReportDate   string             `json:"reportDate,omitempty"`
	DateSource   parser.DateSource  `json:"dateSource,omitempty"`
	TotalRecords int                `json:"totalRecords"`
	SuccessCount int                `json:"successCount"`
	ErrorCount   int                `json:"errorCount"`
	Inserted     int                `json:"inserted"`
	Errors       []string           `json:"errors"`
	Warnings     []string           `json:"warnings"`
	Diff         *diff.Summary      `json:"diff,omitempty"`
	Error        string             `json:"error,omitempty"`
	Duration     time.Duration      `json:"duration"`

	Records   []*model.WorkforceRecord             `json:"-"`
	Snapshots []*model.OverseasCorporationSnapshot `json:"-"`
}

// Import 执行一次导入。结构性失败（文件不可读、找不到表头、日期被拒）返回错误，
// 报告中 Status 为 failed；单条记录失败只计入 ErrorCount。
func (c *Coordinator) Import(opts ImportOptions) (*ImportReport, error) {
	start := time.Now()
	filename := opts.OriginalFilename
	if filename == "" {
		filename = filepath.Base(opts.FilePath)
	}
	report := &ImportReport{
		Filename: filename,
		Status:   model.UploadPending,
		Errors:   []string{},
		Warnings: []string{},
	}
	log := logrus.WithField("file", filename)

	c.emit(opts, "start", "开始导入", map[string]string{"filename": filename})

	size, hash, err := fileDigest(opts.FilePath)
	if err != nil {
		return c.fail(opts, report, start, fmt.Errorf("%w: %v", parser.ErrFileUnreadable, err))
	}

	if c.uploads != nil {
		id, err := c.uploads.CreateUpload(filename, size, hash)
		if err != nil {
			return report, fmt.Errorf("failed to create upload: %w", err)
		}
		report.UploadID = id
	} else {
		report.UploadID = uuid.New().String()
	}
	log = log.WithField("upload_id", report.UploadID)

	// 文件名规则用原始文件名，内容样本读实际文件
	fileType := opts.FileType
	if fileType == "" {
		sample, err := parser.LoadSample(opts.FilePath, parser.DefaultSampleRows)
		if err != nil {
			log.WithError(err).Warn("classify: content unreadable, falling back to filename only")
			sample = [][]string{}
		}
		fileType = c.classifier.Classify(filename, sample)
	}
	report.FileType = fileType
	report.Status = model.UploadProcessing
	if c.uploads != nil {
		if err := c.uploads.MarkUploadProcessing(report.UploadID, fileType); err != nil {
			log.WithError(err).Warn("failed to mark upload processing")
		}
	}
	c.emit(opts, "classified", fmt.Sprintf("文件类型: %s", fileType), map[string]string{"fileType": string(fileType)})

	wb, err := parser.LoadWorkbook(opts.FilePath)
	if err != nil {
		return c.fail(opts, report, start, err)
	}

	dateCell := ""
	if fileType == model.FileTypeOverseas {
		dateCell = c.registry.DateCell()
	}
	resolved := c.dates.Resolve(wb.First(), dateCell, filename)
	if !resolved.Resolved() {
		if c.rejectUnresolvedDate {
			return c.fail(opts, report, start, resolved.Warning)
		}
		log.WithError(resolved.Warning).Warn("report date fallback to today")
		report.Warnings = append(report.Warnings, fmt.Sprintf("report date: %v, using %s",
			resolved.Warning, resolved.Date.Format(model.DateLayout)))
	}
	reportDate := resolved.Date
	report.ReportDate = reportDate.Format(model.DateLayout)
	report.DateSource = resolved.Source

	rec := reconciler.New(c.store, c.store)
	var result *reconciler.Result
	if fileType == model.FileTypeOverseas {
		matrix, err := parser.NewMatrixScanner(c.registry).Scan(wb, reportDate)
		if err != nil {
			return c.fail(opts, report, start, err)
		}
		report.Warnings = append(report.Warnings, matrix.Warnings...)
		for _, snap := range matrix.Snapshots {
			snap.SourceFile = filename
			snap.UploadID = report.UploadID
		}
		report.Snapshots = matrix.Snapshots
		report.TotalRecords = len(matrix.Snapshots)
		c.emit(opts, "scanned", fmt.Sprintf("识别 %d 个海外法人", len(matrix.Snapshots)), nil)
		result = rec.ReconcileSnapshots(matrix.Snapshots)
	} else {
		records, err := c.scanRows(wb, fileType, reportDate)
		if err != nil {
			return c.fail(opts, report, start, err)
		}
		for _, r := range records {
			r.SourceFile = filename
			r.UploadID = report.UploadID
		}
		report.Records = records
		report.TotalRecords = len(records)
		c.emit(opts, "scanned", fmt.Sprintf("解析 %d 条记录", len(records)), nil)
		result = rec.Reconcile(records)
	}

	report.SuccessCount = result.SuccessCount
	report.ErrorCount = result.ErrorCount
	report.Errors = append(report.Errors, result.Errors...)
	report.Inserted = result.Inserted()
	c.emit(opts, "reconciled", fmt.Sprintf("成功 %d 条，失败 %d 条", result.SuccessCount, result.ErrorCount), result)

	if fileType != model.FileTypeOverseas && result.SuccessCount > 0 {
		summary, err := c.rediff(reportDate)
		if err != nil {
			log.WithError(err).Warn("baseline diff failed")
			report.Warnings = append(report.Warnings, fmt.Sprintf("diff: %v", err))
		} else if summary != nil {
			report.Diff = summary
			summary.Apply(report.Records, model.BaseWeek)
		}
	}

	report.Status = model.UploadCompleted
	if c.uploads != nil {
		if err := c.uploads.FinishUpload(report.UploadID, report.Status, report.TotalRecords,
			report.SuccessCount, report.ErrorCount, &reportDate, ""); err != nil {
			log.WithError(err).Warn("failed to finish upload")
		}
		if err := c.uploads.RecordImport(time.Now(), reportDate); err != nil {
			log.WithError(err).Warn("failed to record import")
		}
	}
	report.Duration = time.Since(start)

	log.WithFields(logrus.Fields{
		"type":    fileType,
		"date":    report.ReportDate,
		"total":   report.TotalRecords,
		"success": report.SuccessCount,
		"errors":  report.ErrorCount,
	}).Info("import completed")
	c.emit(opts, "done", "导入完成", report)
	return report, nil
}

// scanRows 行式文件：扫描第一个能找到表头的 sheet
func (c *Coordinator) scanRows(wb *parser.Workbook, fileType model.FileType, reportDate time.Time) ([]*model.WorkforceRecord, error) {
	layout := parser.DomesticLayout
	if fileType == model.FileTypeContractor {
		layout = parser.ContractorLayout
	}
	scanner := parser.NewLayoutScanner(layout).
		WithSearchRows(c.headerSearchRows).
		WithCompanyNormalizer(c.companies)

	var lastErr error
	for _, g := range wb.Sheets {
		records, err := scanner.Scan(g, reportDate)
		if err == nil {
			return records, nil
		}
		if !errors.Is(err, parser.ErrHeaderNotFound) {
			return nil, err
		}
		lastErr = err
	}
	if lastErr == nil {
		lastErr = parser.ErrHeaderNotFound
	}
	var scanErr *parser.ScanError
	if errors.As(lastErr, &scanErr) {
		scanErr.File = filepath.Base(wb.Path)
		return nil, scanErr
	}
	return nil, &parser.ScanError{File: filepath.Base(wb.Path), Err: lastErr}
}

// rediff 先重算库中最新报告日；上传的是更早的日期时再补算该日期，返回该日期的统计
func (c *Coordinator) rediff(reportDate time.Time) (*diff.Summary, error) {
	engine := diff.NewEngine(c.store)
	latest, err := engine.Run()
	if err != nil {
		return nil, err
	}
	if latest != nil && latest.ReportDate.Equal(model.DateOnly(reportDate)) {
		return latest, nil
	}
	return engine.RunFor(reportDate)
}

// fail 记录结构性失败
func (c *Coordinator) fail(opts ImportOptions, report *ImportReport, start time.Time, err error) (*ImportReport, error) {
	report.Status = model.UploadFailed
	report.Error = err.Error()
	report.Duration = time.Since(start)
	if c.uploads != nil && report.UploadID != "" {
		if ferr := c.uploads.FinishUpload(report.UploadID, model.UploadFailed, report.TotalRecords,
			0, report.ErrorCount, nil, err.Error()); ferr != nil {
			logrus.WithError(ferr).Warn("failed to finish upload")
		}
	}
	logrus.WithFields(logrus.Fields{"file": report.Filename, "upload_id": report.UploadID}).
		WithError(err).Error("import failed")
	c.emit(opts, "error", err.Error(), nil)
	return report, err
}

func (c *Coordinator) emit(opts ImportOptions, typ, message string, data interface{}) {
	if opts.Progress == nil {
		return
	}
	opts.Progress(ProgressEvent{
		Type:      typ,
		Message:   message,
		Data:      data,
		Timestamp: time.Now(),
	})
}

// fileDigest 文件大小与 sha256
func fileDigest(path string) (int64, string, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, "", err
	}
	defer f.Close()

	h := sha256.New()
	n, err := io.Copy(h, f)
	if err != nil {
		return 0, "", err
	}
	return n, hex.EncodeToString(h.Sum(nil)), nil
}
