// Package voice 实现角色语音的封闭枚举与确定性映射。
package voice

import (
	"hash/fnv"

	"dead-inside-go/internal/model"
)

// 固定语音集合，角色的 voice_selection 必须取自其中。
const (
	Ash     = "ash"
	Ballad  = "ballad"
	Fable   = "fable"
	Coral   = "coral"
	Onyx    = "onyx"
	Nova    = "nova"
	Shimmer = "shimmer"
	Verse   = "verse"
)

// DefaultVoice 是无法识别性别时使用的兜底语音。
const DefaultVoice = Fable

// 按性别划分的候选桶。Fable 为中性声线，留给 nonbinary 与兜底。
var (
	maleVoices      = []string{Ash, Onyx, Verse}
	femaleVoices    = []string{Ballad, Coral, Nova, Shimmer}
	nonbinaryVoices = []string{Fable, Verse, Coral}
)

var fixedSet = map[string]bool{
	Ash: true, Ballad: true, Fable: true, Coral: true,
	Onyx: true, Nova: true, Shimmer: true, Verse: true,
}

// InFixedSet 判断给定标识是否属于固定语音集合。
func InFixedSet(v string) bool {
	return fixedSet[v]
}

// Select 根据性别与角色提示确定性地选择一个语音。
// 纯函数：相同输入永远得到相同输出；未识别的性别返回 DefaultVoice。
func Select(gender model.Gender, personaHint string) string {
	var bucket []string
	switch gender {
	case model.GenderMale:
		bucket = maleVoices
	case model.GenderFemale:
		bucket = femaleVoices
	case model.GenderNonbinary:
		bucket = nonbinaryVoices
	default:
		return DefaultVoice
	}

	h := fnv.New32a()
	_, _ = h.Write([]byte(personaHint))
	return bucket[int(h.Sum32())%len(bucket)]
}
