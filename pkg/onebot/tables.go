package onebot

import "strconv"

// Tables bundles the static lookup tables the formatter needs. They are
// built once at startup and never mutated afterwards.
type Tables struct {
	faces    map[string]string
	botNames map[string]string
}

const unknownFaceName = "未知表情"

// NewTables merges user-provided face labels and bot display names over
// the built-in defaults. Both argument maps may be nil.
func NewTables(faces, botNames map[string]string) Tables {
	merged := make(map[string]string, len(defaultFaces)+len(faces))
	for id, name := range defaultFaces {
		merged[id] = name
	}
	for id, name := range faces {
		merged[id] = name
	}

	names := make(map[string]string, len(botNames))
	for id, name := range botNames {
		names[id] = name
	}

	return Tables{faces: merged, botNames: names}
}

// FaceName resolves a face id to its display label.
func (t Tables) FaceName(id string) string {
	if name, ok := t.faces[id]; ok {
		return name
	}
	return unknownFaceName
}

// BotName resolves a backend's self id to its configured display name.
// An unconfigured id degrades to a generated placeholder instead of
// failing the event.
func (t Tables) BotName(selfID int64) string {
	key := strconv.FormatInt(selfID, 10)
	if name, ok := t.botNames[key]; ok {
		return name
	}
	return "机器人" + key
}

// honorNames maps group honor types to their QQ display titles.
var honorNames = map[string]string{
	"talkative": "龙王",
	"performer": "群聊之火",
	"emotion":   "快乐源泉",
}

func honorName(honorType string) string {
	if name, ok := honorNames[honorType]; ok {
		return name
	}
	return honorType
}

// defaultFaces covers the classic QQ emoji set. Config can override or
// extend any entry.
var defaultFaces = map[string]string{
	"0":   "惊讶",
	"1":   "撇嘴",
	"2":   "色",
	"3":   "发呆",
	"4":   "得意",
	"5":   "流泪",
	"6":   "害羞",
	"7":   "闭嘴",
	"8":   "睡",
	"9":   "大哭",
	"10":  "尴尬",
	"11":  "发怒",
	"12":  "调皮",
	"13":  "呲牙",
	"14":  "微笑",
	"15":  "难过",
	"16":  "酷",
	"18":  "抓狂",
	"19":  "吐",
	"20":  "偷笑",
	"21":  "可爱",
	"22":  "白眼",
	"23":  "傲慢",
	"24":  "饥饿",
	"25":  "困",
	"26":  "惊恐",
	"27":  "流汗",
	"28":  "憨笑",
	"29":  "悠闲",
	"30":  "奋斗",
	"31":  "咒骂",
	"32":  "疑问",
	"33":  "嘘",
	"34":  "晕",
	"35":  "折磨",
	"36":  "衰",
	"37":  "骷髅",
	"38":  "敲打",
	"39":  "再见",
	"41":  "发抖",
	"42":  "爱情",
	"43":  "跳跳",
	"46":  "猪头",
	"49":  "拥抱",
	"53":  "蛋糕",
	"54":  "闪电",
	"55":  "炸弹",
	"56":  "刀",
	"57":  "足球",
	"59":  "便便",
	"60":  "咖啡",
	"61":  "饭",
	"63":  "玫瑰",
	"64":  "凋谢",
	"66":  "爱心",
	"67":  "心碎",
	"69":  "礼物",
	"74":  "太阳",
	"75":  "月亮",
	"76":  "赞",
	"77":  "踩",
	"78":  "握手",
	"79":  "胜利",
	"85":  "飞吻",
	"86":  "怄火",
	"89":  "西瓜",
	"96":  "冷汗",
	"97":  "擦汗",
	"98":  "抠鼻",
	"99":  "鼓掌",
	"100": "糗大了",
	"101": "坏笑",
	"102": "左哼哼",
	"103": "右哼哼",
	"104": "哈欠",
	"105": "鄙视",
	"106": "委屈",
	"107": "快哭了",
	"108": "阴险",
	"109": "亲亲",
	"110": "吓",
	"111": "可怜",
	"112": "菜刀",
	"113": "啤酒",
	"114": "篮球",
	"115": "乒乓",
	"116": "示爱",
	"117": "瓢虫",
	"118": "抱拳",
	"119": "勾引",
	"120": "拳头",
	"121": "差劲",
	"122": "爱你",
	"123": "NO",
	"124": "OK",
	"125": "转圈",
	"126": "磕头",
	"127": "回头",
	"128": "跳绳",
	"129": "挥手",
	"130": "激动",
	"131": "街舞",
	"132": "献吻",
	"133": "左太极",
	"134": "右太极",
	"136": "双喜",
	"137": "鞭炮",
	"138": "灯笼",
	"140": "K歌",
	"144": "喝彩",
	"145": "祈祷",
	"146": "爆筋",
	"147": "棒棒糖",
	"148": "喝奶",
	"151": "飞机",
	"158": "钞票",
	"168": "药",
	"169": "手枪",
	"171": "茶",
	"172": "眨眼睛",
	"173": "泪奔",
	"174": "无奈",
	"175": "卖萌",
	"176": "小纠结",
	"177": "喷血",
	"178": "斜眼笑",
	"179": "doge",
	"180": "惊喜",
	"181": "骚扰",
	"182": "笑哭",
	"183": "我最美",
	"201": "点赞",
	"212": "托腮",
	"262": "脑阔疼",
	"264": "捂脸",
	"265": "辣眼睛",
	"266": "哦哟",
	"267": "头秃",
	"268": "问号脸",
	"269": "暗中观察",
	"270": "emm",
	"271": "吃瓜",
	"272": "呵呵哒",
	"273": "我酸了",
	"277": "汪汪",
}
