package telegram

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/disertus/Blood-Donor-Bot/internal/domain"
)

// UI texts in Ukrainian, matching the donor center's audience.
const (
	promptBloodType = "Привіт! Готовий рятувати життя?\nВкажи свою групу крові:"
	promptRh        = "А тепер вкажи свій резус-фактор:"
	promptDonation  = "Коли ти востаннє здавав(-ла) кров?"

	confirmRegistered = "All done!\n" +
		"Тепер я надсилатиму тобі сповіщення, якщо виникне необхідність у крові твоєї групи! \U0001F618\n\n" +
		"Переглянути повний список функцій - тисни /help"

	invalidInputText = "Дурник-бот не зрозумів :(\n" +
		"Почнімо спочатку — вкажи свою групу крові:"

	helpText = "/start - вказати / оновити групу крові\n" +
		"/update - перевірити запаси крові\n" +
		"/intervals - інтервали між донаціями\n" +
		"/location - де здати кров\n" +
		"/reset - видалити свої дані\n" +
		"/info - довідкова інформація"

	infoText = "Більше інформації про процедуру та пункти здачі крові на kmck.kiev.ua"

	// The commonly cited intervals differ by sex; the bot applies one
	// configured cooldown for everyone.
	intervalsText = "Рекомендовані інтервали між донаціями крові:\n" +
		"• чоловіки — не частіше ніж раз на 2,5 місяці\n" +
		"• жінки — не частіше ніж раз на 3 місяці\n\n" +
		"Бот нагадає тобі не раніше, ніж мине безпечний інтервал після останньої донації."

	resetDoneText = "Твої дані видалено. Почнімо реєстрацію заново!"

	notRegisteredHint = "Щоб отримувати сповіщення, спершу зареєструйся — тисни /start"

	updateUnavailable = "Не вдалося отримати дані про запаси. Спробуй пізніше."

	updateHeaderFmt = "Запаси станом на %s"
	updateStaleNote = "(останні збережені дані — сайт зараз недоступний)"
)

// Kyiv City Blood Center, vul. Maksyma Berlynskoho 12.
const (
	centerLat = 50.47878
	centerLon = 30.44751
)

func bloodTypeKeyboard() tgbotapi.ReplyKeyboardMarkup {
	return tgbotapi.NewOneTimeReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton("I - перша"),
			tgbotapi.NewKeyboardButton("II - друга"),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton("III - третя"),
			tgbotapi.NewKeyboardButton("IV - четверта"),
		),
	)
}

func rhKeyboard() tgbotapi.ReplyKeyboardMarkup {
	return tgbotapi.NewOneTimeReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton("(+)")),
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton("(–)")),
	)
}

func donationDateKeyboard() tgbotapi.ReplyKeyboardMarkup {
	return tgbotapi.NewOneTimeReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(domain.Bucket7),
			tgbotapi.NewKeyboardButton(domain.Bucket14),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(domain.Bucket30),
			tgbotapi.NewKeyboardButton(domain.Bucket60),
		),
	)
}
