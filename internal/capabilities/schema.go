package capabilities

// Permission codes shared by all layouts, in wire order.
var common = []string{
	"View",
	"Door",
	"Audio",
	"Video",
	"Network",
	"Sip",
	"Record",
	"Alert",
	"Kkm",
	"ApartmentLinelevel",
	"ChangeLinelevel",
	"ServiceTime",
	"ConciergeApartment",
	"Doorcode",
	"Eeprom",
	"IntercomAlert",
	"Apartment",
	"ApartmentCodes",
	"Keys",
	"Display",
	"Gate",
}

// schemas maps a token count to the permission layout of the firmware
// that reports it. Older firmware exposes a single "System" permission;
// newer firmware splits it into eight System* codes.
var schemas = map[int][]string{
	24: concat(common, "System", "Notifications", "Rtsp"),
	25: concat(common, "System", "Notifications", "Rtsp", "Onvif"),
	32: concat(common,
		"Notifications",
		"Rtsp",
		"Onvif",
		"SystemInformation",
		"SystemTime",
		"SystemUsers",
		"SystemUpdate",
		"SystemReset",
		"SystemReboot",
		"SystemLog",
		"SystemRemoteLog",
	),
}

// labels holds the display names shown by the device web interface.
var labels = map[string]string{
	"View":               "Просмотр",
	"Door":               "Открытие, закрытие двери",
	"Audio":              "Аудио - Настройки",
	"Video":              "Видео - Все пункты управления",
	"Network":            "Сеть - Все пункты управления",
	"Sip":                "SIP - Все пункты управления",
	"Record":             "Запись - Все пункты управления",
	"Alert":              "Тревога - Все пункты управления",
	"Kkm":                "Домофон - Адресация ККМ",
	"ApartmentLinelevel": "Домофон - Настройки - Уровень линии в квартире",
	"ChangeLinelevel":    "Домофон - Настройки - Изменение уровней снятия трубки, открытия двери",
	"ServiceTime":        "Домофон - Настройки - Время открытия двери, вызова, разговора",
	"ConciergeApartment": "Домофон - Настройки - Квартира консьержа",
	"Doorcode":           "Домофон - Настройки - Сервисный код открытия двери",
	"Eeprom":             "Домофон - Настройки - EEPROM, Обновление ПО микроконтроллера",
	"IntercomAlert":      "Домофон - Тревога",
	"Apartment":          "Домофон - Квартиры - все пункты, кроме кодов",
	"ApartmentCodes":     "Домофон - Квартиры - изменение кода открытия двери, код регистрации RFID",
	"Keys":               "Домофон - RFID ключи",
	"Display":            "Домофон - Дисплей",
	"Gate":               "Домофон - Калитка",
	"Notifications":      "Оповещение",
	"Rtsp":               "RTSP",
	"Onvif":              "Onvif - События",
	"SystemInformation":  "Системные - Информация",
	"SystemTime":         "Системные - Дата и время",
	"SystemUsers":        "Системные - Пользователи",
	"SystemUpdate":       "Системные - Обновление",
	"SystemReset":        "Системные - Сброс настроек",
	"SystemReboot":       "Системные - Перезагрузка",
	"SystemLog":          "Системные - Системный журнал",
	"SystemRemoteLog":    "Системные - Remote syslog",
}

func concat(base []string, extra ...string) []string {
	out := make([]string, 0, len(base)+len(extra))
	out = append(out, base...)
	return append(out, extra...)
}

// Schema returns a copy of the permission codes for a layout of n tokens.
func Schema(n int) ([]string, bool) {
	codes, ok := schemas[n]
	if !ok {
		return nil, false
	}
	return append([]string(nil), codes...), true
}

// Lengths lists the supported token counts in ascending order.
func Lengths() []int {
	return []int{24, 25, 32}
}

// Label returns the display name of code, or code itself when none exists.
func Label(code string) string {
	if l, ok := labels[code]; ok {
		return l
	}
	return code
}
