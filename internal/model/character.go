// Package model 包含了应用的数据模型定义。
package model

// Gender 是驱动语音映射的枚举值。
type Gender string

const (
	GenderMale      Gender = "male"
	GenderFemale    Gender = "female"
	GenderNonbinary Gender = "nonbinary"
)

// ValidGender 判断给定值是否为已识别的性别枚举。
func ValidGender(g Gender) bool {
	switch g {
	case GenderMale, GenderFemale, GenderNonbinary:
		return true
	}
	return false
}

// Character 代表一个由模型生成的治疗模拟角色。
// 角色一经生成即不可变，由仓储层负责持久化。
type Character struct {
	ID                 string   `json:"id"`
	Name               string   `json:"name"`
	Background         string   `json:"background"`
	Problem            string   `json:"problem"`
	ProblemDescription string   `json:"problem_description"`
	MentalState        string   `json:"mental_state"`
	InteractionWarning string   `json:"interaction_warning"`
	Gender             Gender   `json:"gender"`
	VoiceInstructions  string   `json:"voice_instructions"`
	VoiceSelection     string   `json:"voice_selection"`
	Shirt              string   `json:"shirt"`
	Pants              string   `json:"pants"`
	BodyType           string   `json:"body_type"`
	Accessories        []string `json:"accessories"`
	CreatedAt          string   `json:"created_at"`
}
