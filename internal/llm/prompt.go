package llm

import (
	"strconv"
	"strings"

	"github.com/hunterwarburton/porsa/internal/core"
)

// Intent-specific prompt templates. Each template addresses the model as a
// Persian shop assistant and carries {query} and {context} placeholders.
// Greetings never reach the LLM, so there is no greeting template here.
var promptTemplates = map[core.Intent]string{
	core.IntentPriceCheck: `شما یک فروشنده حرفه‌ای هستید. کاربر در مورد قیمت محصول سوال کرده است.

سوال کاربر: {query}

محصولات مرتبط:
{context}

لطفاً یک پاسخ مفید و دقیق به فارسی بدهید که شامل قیمت محصولات باشد. اگر چند محصول مرتبط وجود دارد همه را ذکر کنید.
پاسخ خود را کوتاه، واضح و دوستانه بنویسید.`,

	core.IntentAvailability: `شما یک فروشنده حرفه‌ای هستید. کاربر در مورد موجودی محصول سوال کرده است.

سوال کاربر: {query}

محصولات مرتبط:
{context}

لطفاً یک پاسخ مفید به فارسی بدهید که وضعیت موجودی را مشخص کند.
اگر محصول موجود است این را به کاربر اطلاع دهید. اگر موجود نیست، پیشنهادهای جایگزین ارائه کنید.
پاسخ خود را کوتاه و واضح بنویسید.`,

	core.IntentFeatureInquiry: `شما یک فروشنده حرفه‌ای هستید. کاربر در مورد مشخصات و ویژگی‌های محصول سوال کرده است.

سوال کاربر: {query}

محصولات مرتبط:
{context}

لطفاً یک پاسخ جامع به فارسی بدهید که ویژگی‌های مهم محصول را توضیح دهد.
بر روی ویژگی‌هایی که کاربر سوال کرده تمرکز کنید.
پاسخ خود را واضح و مفید بنویسید.`,

	core.IntentComparison: `شما یک فروشنده حرفه‌ای هستید. کاربر می‌خواهد چند محصول را با هم مقایسه کند.

سوال کاربر: {query}

محصولات مرتبط:
{context}

لطفاً یک مقایسه دقیق و بی‌طرفانه به فارسی ارائه دهید.
تفاوت‌های کلیدی را مشخص کنید و به کاربر کمک کنید تا بهترین انتخاب را داشته باشد.
پاسخ خود را ساختاریافته و قابل فهم بنویسید.`,

	core.IntentShipping: `شما یک فروشنده حرفه‌ای هستید. کاربر در مورد ارسال و تحویل سوال کرده است.

سوال کاربر: {query}

محصولات مرتبط:
{context}

لطفاً اطلاعات دقیق در مورد زمان و نحوه ارسال را به فارسی ارائه دهید.
اگر اطلاعات ارسال در داده‌ها موجود نیست، شرایط عمومی ارسال را توضیح دهید (معمولاً 2-3 روز کاری).
پاسخ خود را واضح بنویسید.`,

	core.IntentPurchase: `شما یک فروشنده حرفه‌ای هستید. کاربر می‌خواهد محصول را خریداری کند.

سوال کاربر: {query}

محصولات مرتبط:
{context}

لطفاً یک پاسخ مفید به فارسی بدهید که اطلاعات محصول، قیمت و نحوه خرید را شامل شود.
کاربر را برای تکمیل خرید راهنمایی کنید.
پاسخ خود را دوستانه و تشویق‌کننده بنویسید.`,

	core.IntentGeneralInquiry: `شما یک فروشنده حرفه‌ای هستید. کاربر یک سوال عمومی پرسیده است.

سوال کاربر: {query}

محصولات مرتبط:
{context}

لطفاً بهترین پاسخ ممکن را به فارسی بدهید.
اگر محصولات مرتبطی پیدا شد آنها را معرفی کنید.
اگر نیاز به اطلاعات بیشتر دارید از کاربر بپرسید.
پاسخ خود را مفید و دوستانه بنویسید.`,
}

// expansionPrompt asks the model for paraphrases of a Persian question as a
// numbered list. {num} is the number of variants requested.
const expansionPrompt = `شما یک دستیار هوشمند هستید. یک سوال فارسی دریافت می‌کنید و باید {num} نسخه متفاوت از آن سوال را بسازید که همان معنی را داشته باشند اما با کلمات متفاوت بیان شوند.

سوال اصلی: {query}

لطفاً {num} نسخه متفاوت از این سوال را به صورت یک لیست شماره‌دار بنویسید:`

// BuildPrompt renders the template for the given intent with the user query
// and the formatted product context. Intents without a template of their own
// fall back to the general one.
func BuildPrompt(intent core.Intent, query, context string) string {
	tmpl, ok := promptTemplates[intent]
	if !ok {
		tmpl = promptTemplates[core.IntentGeneralInquiry]
	}
	r := strings.NewReplacer("{query}", query, "{context}", context)
	return r.Replace(tmpl)
}

// BuildExpansionPrompt renders the paraphrase prompt asking for n variants
// of the query.
func BuildExpansionPrompt(query string, n int) string {
	r := strings.NewReplacer("{num}", strconv.Itoa(n), "{query}", query)
	return r.Replace(expansionPrompt)
}
