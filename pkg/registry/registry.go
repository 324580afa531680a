package registry

import (
	"bytes"
	"encoding/json"
	"sort"

	"keylen/pkg/contract"
	dtext "keylen/plugins/decoder/textenc"
	rfs "keylen/plugins/reader/filesystem"
	rchart "keylen/plugins/reporter/chart"
	rjson "keylen/plugins/reporter/jsonrep"
	rtext "keylen/plugins/reporter/text"
	ryaml "keylen/plugins/reporter/yamlrep"
	wfs "keylen/plugins/writer/filesystem"
	wstd "keylen/plugins/writer/stdout"
)

// strictUnmarshal: DisallowUnknownFields 严格解码；空输入保持零值。
func strictUnmarshal(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// 工厂签名：接收原样 JSON Options。
type (
	NewReader   func(raw json.RawMessage) (contract.Reader, error)
	NewDecoder  func(raw json.RawMessage) (contract.Decoder, error)
	NewReporter func(raw json.RawMessage) (contract.Reporter, error)
	NewWriter   func(raw json.RawMessage) (contract.Writer, error)
)

// Reader 工厂注册表（显式、零反射）。
var Reader = map[string]NewReader{
	// fs: 文件/目录/STDIN，*.gz 透明解压
	"fs": func(raw json.RawMessage) (contract.Reader, error) {
		var opts rfs.Options
		if err := strictUnmarshal(raw, &opts); err != nil {
			return nil, err
		}
		return rfs.New(&opts), nil
	},
}

// Decoder 按输入编码名注册；同一份 textenc.Options。
var Decoder = map[string]NewDecoder{
	string(dtext.Raw):     textenc(dtext.Raw),
	string(dtext.UTF8):    textenc(dtext.UTF8),
	string(dtext.Hex):     textenc(dtext.Hex),
	string(dtext.Base64):  textenc(dtext.Base64),
	string(dtext.Binary):  textenc(dtext.Binary),
	string(dtext.Letters): textenc(dtext.Letters),
}

func textenc(f dtext.Format) NewDecoder {
	return func(raw json.RawMessage) (contract.Decoder, error) {
		var opts dtext.Options
		if err := strictUnmarshal(raw, &opts); err != nil {
			return nil, err
		}
		return dtext.New(string(f), &opts)
	}
}

// Reporter 工厂注册表；一次运行可启用多个。
var Reporter = map[string]NewReporter{
	"text": func(raw json.RawMessage) (contract.Reporter, error) {
		var opts rtext.Options
		if err := strictUnmarshal(raw, &opts); err != nil {
			return nil, err
		}
		return rtext.New(&opts), nil
	},
	"json": func(raw json.RawMessage) (contract.Reporter, error) {
		var opts rjson.Options
		if err := strictUnmarshal(raw, &opts); err != nil {
			return nil, err
		}
		return rjson.New(&opts), nil
	},
	"yaml": func(raw json.RawMessage) (contract.Reporter, error) {
		var opts ryaml.Options
		if err := strictUnmarshal(raw, &opts); err != nil {
			return nil, err
		}
		return ryaml.New(&opts), nil
	},
	// chart: ECharts HTML 折线图
	"chart": func(raw json.RawMessage) (contract.Reporter, error) {
		var opts rchart.Options
		if err := strictUnmarshal(raw, &opts); err != nil {
			return nil, err
		}
		return rchart.New(&opts), nil
	},
}

// Writer 工厂注册表。
var Writer = map[string]NewWriter{
	// fs: 原子替换/扁平化可配置
	"fs": func(raw json.RawMessage) (contract.Writer, error) {
		var opts wfs.Options
		if err := strictUnmarshal(raw, &opts); err != nil {
			return nil, err
		}
		return wfs.New(&opts)
	},
	"stdout": func(raw json.RawMessage) (contract.Writer, error) {
		var opts wstd.Options
		if err := strictUnmarshal(raw, &opts); err != nil {
			return nil, err
		}
		return wstd.New(&opts), nil
	},
}

// Names 返回注册表中排序后的名字（帮助信息/错误提示用）。
func Names[F any](m map[string]F) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
