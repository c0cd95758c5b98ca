package domain

import (
	"errors"
	"fmt"
)

// ErrInvalidMoral はカタログに存在しない教訓IDが指定された場合に返されます。
var ErrInvalidMoral = errors.New("invalid moral selected")

// Moral は物語のテーマとなる教訓の定義です。
type Moral struct {
	ID          string `json:"id"`
	Label       string `json:"label"`
	Description string `json:"description"`
}

var morals = []Moral{
	{ID: "kindness", Label: "Kindness", Description: "Being kind to others makes the world a better place"},
	{ID: "sharing", Label: "Sharing", Description: "The joy of sharing with friends and family"},
	{ID: "bravery", Label: "Bravery", Description: "Having courage to overcome fears"},
	{ID: "honesty", Label: "Honesty", Description: "Always telling the truth, even when it's hard"},
	{ID: "friendship", Label: "Friendship", Description: "The value of true friends"},
	{ID: "perseverance", Label: "Perseverance", Description: "Never giving up, even when things are difficult"},
	{ID: "gratitude", Label: "Gratitude", Description: "Being thankful for what we have"},
	{ID: "respect", Label: "Respect", Description: "Treating others the way we want to be treated"},
	{ID: "responsibility", Label: "Responsibility", Description: "Taking responsibility for our actions"},
	{ID: "creativity", Label: "Creativity", Description: "Using imagination to solve problems and create"},
}

// Morals はカタログのコピーを定義順で返します。
func Morals() []Moral {
	out := make([]Moral, len(morals))
	copy(out, morals)
	return out
}

// LookupMoral はIDに一致する教訓を返します。見つからない場合は ErrInvalidMoral です。
func LookupMoral(id string) (Moral, error) {
	for _, m := range morals {
		if m.ID == id {
			return m, nil
		}
	}
	return Moral{}, fmt.Errorf("%w: %q", ErrInvalidMoral, id)
}
