package domain

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrInvalidProfile は子どものプロフィールが不正な場合に返されます。
var ErrInvalidProfile = errors.New("invalid child profile")

const (
	minChildAge = 1
	maxChildAge = 12

	// GenderFemale は女の子向けの表現（girl, dress, she）を選ぶ値です。
	GenderFemale = "female"
)

// ChildProfile は物語の主人公となる子どもの情報を保持します。
// プロンプトのパラメータとしてのみ使われ、このパッケージ内で変更されることはありません。
type ChildProfile struct {
	ID        string   `json:"id,omitempty" yaml:"id,omitempty"`
	Name      string   `json:"name" yaml:"name"`
	Age       int      `json:"age" yaml:"age"`
	Gender    string   `json:"gender" yaml:"gender"`
	SkinTone  string   `json:"skin_tone" yaml:"skin_tone"`
	EyeColor  string   `json:"eye_color" yaml:"eye_color"`
	HairColor string   `json:"hair_color" yaml:"hair_color"`
	HairStyle string   `json:"hair_style,omitempty" yaml:"hair_style,omitempty"`
	Interests []string `json:"interests" yaml:"interests"`
}

// IsFemale は gender が female かどうかを返します。
func (c ChildProfile) IsFemale() bool {
	return strings.EqualFold(strings.TrimSpace(c.Gender), GenderFemale)
}

// Validate は最低限の入力チェックを行います。
func (c ChildProfile) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidProfile)
	}
	if c.Age < minChildAge || c.Age > maxChildAge {
		return fmt.Errorf("%w: age %d is out of range [%d, %d]", ErrInvalidProfile, c.Age, minChildAge, maxChildAge)
	}
	return nil
}

// String は子どもの情報を文字列で返します。
func (c ChildProfile) String() string {
	return fmt.Sprintf("%s (%d)", c.Name, c.Age)
}

// LoadChildProfile は YAML または JSON のファイルからプロフィールを読み込みます。
// YAML は JSON の上位互換なので、同じデコーダで両方を扱えます。
func LoadChildProfile(path string) (ChildProfile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return ChildProfile{}, fmt.Errorf("プロフィールファイルの読み込みに失敗しました: %w", err)
	}
	return ParseChildProfile(data)
}

// ParseChildProfile はバイト列からプロフィールをデコードし、検証します。
func ParseChildProfile(data []byte) (ChildProfile, error) {
	var child ChildProfile
	if err := yaml.Unmarshal(data, &child); err != nil {
		return ChildProfile{}, fmt.Errorf("プロフィールのデコードに失敗しました: %w", err)
	}
	if err := child.Validate(); err != nil {
		return ChildProfile{}, err
	}
	return child, nil
}
