package i18n

type Key string

const (
	KeyFailedLoadItems Key = "failedLoadItems"
	KeyNoItemsBought   Key = "noItemsBought"
	KeyBatchFinalized  Key = "batchFinalized"
	KeyBatchError      Key = "batchError"
	KeyEnterValidCost  Key = "enterValidCost"
	KeyEnterValidQty   Key = "enterValidQty"
	KeyMarketRun       Key = "marketRun"
	KeyProgress        Key = "progress"
	KeyQty             Key = "qty"
	KeyUnitPrice       Key = "unitPrice"
	KeyTotalCost       Key = "totalCost"
	KeyNoItemsFound    Key = "noItemsFound"
	KeyOther           Key = "other"
)

var messages = map[Key]Text{
	KeyFailedLoadItems: {English: "Failed to load items", Russian: "Не удалось загрузить", Uzbek: "Yuklab bo'lmadi", Chinese: "加载失败"},
	KeyNoItemsBought:   {English: "No items marked as bought!", Russian: "Нет отмеченных товаров!", Uzbek: "Sotib olingan mahsulot yo'q!", Chinese: "没有标记为已购的商品！"},
	KeyBatchFinalized:  {English: "Purchase Batch Finalized!", Russian: "Закупка завершена!", Uzbek: "Xarid yakunlandi!", Chinese: "采购批次已完成！"},
	KeyBatchError:      {English: "Error finalizing batch", Russian: "Ошибка при завершении", Uzbek: "Yakunlashda xatolik", Chinese: "完成批次失败"},
	KeyEnterValidCost:  {English: "Please enter valid total cost for", Russian: "Введите стоимость для", Uzbek: "Narxni kiriting:", Chinese: "请输入有效总费用："},
	KeyEnterValidQty:   {English: "Please enter valid quantity for", Russian: "Введите количество для", Uzbek: "Sonini kiriting:", Chinese: "请输入有效数量："},
	KeyMarketRun:       {English: "Market Run", Russian: "Закупка", Uzbek: "Bozor xaridi", Chinese: "市场采购"},
	KeyProgress:        {English: "Progress", Russian: "Прогресс", Uzbek: "Jarayon", Chinese: "进度"},
	KeyQty:             {English: "Qty", Russian: "Кол-во", Uzbek: "Soni", Chinese: "数量"},
	KeyUnitPrice:       {English: "Unit Price", Russian: "Цена за ед.", Uzbek: "Birlik narxi", Chinese: "单价"},
	KeyTotalCost:       {English: "Total Cost", Russian: "Общая стоимость", Uzbek: "Umumiy narx", Chinese: "总费用"},
	KeyNoItemsFound:    {English: "No Items Found", Russian: "Товары не найдены", Uzbek: "Mahsulotlar topilmadi", Chinese: "未找到商品"},
	KeyOther:           {English: "Other", Russian: "Другое", Uzbek: "Boshqa", Chinese: "其他"},
}

// UI returns the interface string for key, or the key itself when unknown.
func UI(lang Language, key Key) string {
	if v := Translate(messages[key], lang); v != "" {
		return v
	}
	return string(key)
}
