package binding

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadFile 读取 YAML 或 JSON 参数文件（JSON 是 YAML 的子集）。
func LoadFile(path string) (any, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("无法打开参数文件 %s: %w", path, err)
	}
	defer f.Close()
	data, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("解析参数文件 %s 失败: %w", path, err)
	}
	return data, nil
}

// Decode 从 r 读取一份 YAML/JSON 文档；空输入返回 nil。
func Decode(r io.Reader) (any, error) {
	var out any
	if err := yaml.NewDecoder(r).Decode(&out); err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, err
	}
	return out, nil
}

// Parse 从字节解析参数，供 --data 直接传入内联 JSON/YAML。
func Parse(b []byte) (any, error) {
	var out any
	if err := yaml.Unmarshal(b, &out); err != nil {
		return nil, err
	}
	return out, nil
}
