// Package i18n holds the report's user-facing strings. Chinese is the
// default language; English is available with --lang=en.
package i18n

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var supported = []language.Tag{
	language.SimplifiedChinese,
	language.English,
}

var matcher = language.NewMatcher(supported)

// entries maps a message key to its zh and en strings.
var entries = map[string][2]string{
	"report.title":       {"测试报告", "Test Report"},
	"report.description": {"本次测试描述", "Test run description"},

	"outcome.passed":  {"通过", "Passed"},
	"outcome.skipped": {"跳过", "Skipped"},
	"outcome.failed":  {"失败", "Failed"},
	"outcome.error":   {"故障", "Error"},
	"outcome.xfailed": {"预期的失败", "Expected failures"},
	"outcome.xpassed": {"未知的通过", "Unexpected passes"},
	"outcome.rerun":   {"重跑", "Rerun"},

	"filter.hint":    {"(取消)勾选复选框, 以便筛选测试结果.", "(Un)check the boxes to filter the results."},
	"table.name":     {"测试用例", "Test"},
	"table.duration": {"运行时间", "Duration"},
	"table.result":   {"运行结果", "Result"},
	"table.links":    {"日志资源", "Links"},
	"table.notfound": {"无测试结果, 请考虑更换其他测试结果筛选条件.", "No results found. Try to check the filters."},

	"overview.tester":      {"测试人员：", "Tester: "},
	"overview.department":  {"测试中心：", "Department: "},
	"overview.statistics":  {"用例统计：", "Statistics: "},
	"overview.description": {"测试描述：", "Description: "},
	"overview.summary": {
		"合计 %d 条用例, 运行时间为: %.2f 秒, 生成时间为: %s",
		"%d tests ran in %.2f seconds, generated on %s",
	},

	"section.environment": {"测试环境", "Environment"},
	"section.results":     {"测试结果详情", "Results"},
	"section.output":      {"捕获的输出", "Captured output"},
	"log.empty":           {"未捕获到日志.", "No log output captured."},

	"env.ProjectName": {"项目名称", "Project"},
	"env.ProjectURL":  {"项目地址", "Project URL"},
	"env.Go":          {"Go", "Go"},
	"env.Platform":    {"操作系统", "Platform"},
	"env.Packages":    {"依赖包", "Packages"},
	"env.Plugins":     {"扩展插件", "Plugins"},

	"terminal.done": {"测试已全部完成，可打开 %s 查看报告", "Generated html report: %s"},
}

func init() {
	for key, text := range entries {
		_ = message.SetString(language.SimplifiedChinese, key, text[0])
		_ = message.SetString(language.English, key, text[1])
	}
}

// Translator renders message keys in one language.
type Translator struct {
	tag     language.Tag
	printer *message.Printer
}

// New picks the closest supported language for lang. Unknown or empty
// values fall back to Chinese.
func New(lang string) *Translator {
	tag := supported[0]
	if lang != "" {
		if t, err := language.Parse(lang); err == nil {
			_, idx, conf := matcher.Match(t)
			if conf != language.No {
				tag = supported[idx]
			}
		}
	}
	return &Translator{tag: tag, printer: message.NewPrinter(tag)}
}

// Lang is the BCP 47 tag used in the html lang attribute.
func (t *Translator) Lang() string {
	return t.tag.String()
}

// T returns the translation of key formatted with args.
func (t *Translator) T(key string, args ...any) string {
	return t.printer.Sprintf(key, args...)
}

// Outcome returns the label of an outcome such as "passed".
func (t *Translator) Outcome(outcome string) string {
	return t.T("outcome." + outcome)
}

// EnvLabel returns the label of an environment key, or the key itself when
// it has none.
func (t *Translator) EnvLabel(key string) string {
	if _, ok := entries["env."+key]; !ok {
		return key
	}
	return t.T("env." + key)
}
