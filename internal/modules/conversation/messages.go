// README: User-facing reply texts (zh-TW, mirroring the production bot).
package conversation

const (
	msgHelp          = "請輸入「預約」開始叫車，輸入「查詢」查看預約，或輸入「取消」取消預約。"
	msgAskName       = "第一次使用，先完成基本設定。請輸入你的暱稱："
	msgAskGender     = "請輸入你的性別（男 / 女 / 其他）："
	msgAskPetPref    = "關於寵物，請回覆：我有寵物 / 接受寵物 / 不接受寵物"
	msgAskSmokePref  = "關於吸菸，請回覆：我會吸菸 / 接受吸菸 / 不接受吸菸"
	msgAskOrigin     = "請傳送你的出發地點（點選 ➕ > 位置）："
	msgAskDest       = "請傳送你的目的地點（點選 ➕ > 位置）："
	msgAskTime       = "請輸入預約搭車時間（格式：2025-06-01 18:00）："
	msgBadTime       = "時間格式錯誤，請重新輸入（例如：2025-06-01 18:00）："
	msgBadGender     = "性別須為：男 / 女 / 其他，請重新輸入："
	msgNeedLocation  = "請先輸入「預約」開始流程再傳送位置。"
	msgNoBooking     = "目前沒有任何預約。"
	msgCancelled     = "已取消所有預約。"
	msgMatchReleased = "你的共乘對象已取消預約，已為你重新排入配對。"
	msgStoreFailure  = "系統忙碌中，請稍後再試一次。"
)
