package dialogue

import "github.com/tbxark/intakebot/types"

// RegistrationFields are the worker registration questions, in order.
var RegistrationFields = []types.FieldInfo{
	{Name: types.FieldFullName, DisplayName: "Ad Soyad", Description: "worker's full name", Required: true},
	{Name: types.FieldCategory, DisplayName: "Kategori", Description: "one of Cleaning, Plumbing, Electrician, Painting", Required: true},
	{Name: types.FieldLocation, DisplayName: "Şehir", Description: "city the worker serves", Required: true},
	{Name: types.FieldPhoneNumber, DisplayName: "Telefon", Description: "contact phone number", Required: true},
	{Name: types.FieldExperience, DisplayName: "Deneyim", Description: "years of experience as a whole number", Required: true},
}

// BookingFields are the booking slots, always asked in this order. None is required: a
// slot the user skipped while classifying is kept empty.
var BookingFields = []types.FieldInfo{
	{Name: types.FieldLocation, DisplayName: "Konum", Description: "where the service is needed"},
	{Name: types.FieldDate, DisplayName: "Tarih", Description: "day of the appointment"},
	{Name: types.FieldTime, DisplayName: "Saat", Description: "time of the appointment"},
}

var RegistrationPrompts = map[string]string{
	types.FieldFullName:    "Adınızı ve soyadınızı giriniz:",
	types.FieldCategory:    "Hangi kategoride hizmet vereceksiniz? (Cleaning, Plumbing, Electrician, Painting)",
	types.FieldLocation:    "Hangi şehirde hizmet vereceksiniz?",
	types.FieldPhoneNumber: "Telefon numaranızı giriniz:",
	types.FieldExperience:  "Kaç yıllık deneyiminiz var?",
}

var BookingPrompts = map[string]string{
	types.FieldLocation: "Lütfen konumunuzu belirtir misiniz?",
	types.FieldDate:     "Hangi gün için randevu oluşturmak istersiniz?",
	types.FieldTime:     "Saat kaçta hizmet almak istiyorsunuz?",
}

const (
	RegistrationIntro   = "İşçi kayıt sürecini başlatıyoruz. Lütfen adınızı ve soyadınızı giriniz:"
	RegistrationSuccess = "İşçi kaydınız başarıyla tamamlandı! 🎉"
	GenericError        = "Bir hata oluştu. Lütfen tekrar deneyin."

	CategoryNotFound = "Bu kategoriye ait bir veri bulunamadı."
	NoProviders      = "Bu kategoride şu anda müsait görevli bulunmamaktadır."
	NoWorkers        = "Kayıtlı işçi bulunamadı."
	BookingBusy      = "Devam eden bir randevu talebiniz var. Önce onu tamamlayın ya da /iptal yazın."
	Cancelled        = "İşleminiz iptal edildi."
	NothingToCancel  = "İptal edilecek aktif bir işlem yok."
	InvalidAnswer    = "Bu yanıtı anlayamadım."
)

const Help = `Merhaba! Size nasıl yardımcı olabilirim?

• Hizmet almak için ihtiyacınızı yazmanız yeterli, örneğin "Kadıköy'de yarın tesisatçı lazım".
• /isci_ekle : işçi olarak kayıt olun
• /isci_listesi [kategori] : kayıtlı işçileri listeleyin
• /iptal : devam eden işlemi iptal edin`
