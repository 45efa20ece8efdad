package parser

import (
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"ehr/internal/model"
)

// 分类关键词
var (
	overseasFilenameTokens   = []string{"해외", "overseas"}
	contractorFilenameTokens = []string{"외주", "아웃소싱", "outsourc", "도급", "협력사"}
	contractorContentTokens  = []string{"외주", "협력업체", "업체명", "도급", "아웃소싱"}
)

// DefaultSampleRows 分类时读取的行数
const DefaultSampleRows = 10

// SampleLoader 读取样本行
type SampleLoader func(path string, maxRows int) ([][]string, error)

// FileClassifier 根据文件名与内容样本选择解析策略
type FileClassifier struct {
	corporations []string
	loadSample   SampleLoader
	sampleRows   int
}

// NewFileClassifier 创建分类器；corporations 为已知海外法人名称（含别名）
func NewFileClassifier(corporations []string) *FileClassifier {
	names := make([]string, 0, len(corporations))
	for _, c := range corporations {
		if v := strings.ToLower(CompactText(c)); v != "" {
			names = append(names, v)
		}
	}
	return &FileClassifier{
		corporations: names,
		loadSample:   LoadSample,
		sampleRows:   DefaultSampleRows,
	}
}

// WithSampleLoader 替换样本读取方式
func (c *FileClassifier) WithSampleLoader(loader SampleLoader) *FileClassifier {
	c.loadSample = loader
	return c
}

// Classify 识别文件类型。sample 为 nil 时自行读取前若干行；读取失败不会报错，回退为 domestic。
func (c *FileClassifier) Classify(path string, sample [][]string) model.FileType {
	name := strings.ToLower(CompactText(filepath.Base(path)))
	if ContainsAny(name, overseasFilenameTokens) {
		return model.FileTypeOverseas
	}
	if ContainsAny(name, contractorFilenameTokens) {
		return model.FileTypeContractor
	}

	if sample == nil {
		var err error
		sample, err = c.loadSample(path, c.sampleRows)
		if err != nil {
			logrus.WithFields(logrus.Fields{"file": filepath.Base(path)}).
				WithError(err).Warn("classify: content unreadable, falling back to domestic")
			return model.FileTypeDomestic
		}
	}

	var b strings.Builder
	for _, row := range sample {
		for _, v := range row {
			b.WriteString(strings.ToLower(CompactText(v)))
			b.WriteByte(' ')
		}
	}
	content := b.String()

	if ContainsAny(content, c.corporations) {
		return model.FileTypeOverseas
	}
	if ContainsAny(content, contractorContentTokens) {
		return model.FileTypeContractor
	}
	return model.FileTypeDomestic
}

// ClassifyFile 读取文件前若干行后分类
func (c *FileClassifier) ClassifyFile(path string) model.FileType {
	return c.Classify(path, nil)
}
