package domain

// BatchRecipientItem 批次内的单个投递目标
type BatchRecipientItem struct {
	OutboxRowName  string `json:"outbox_row_name"`
	UserIdentifier string `json:"user_identifier,omitempty"`
	ChannelID      string `json:"channel_id"`
}

// RecipientsBatch 一次调度运行内的临时分组结构，从不落库
type RecipientsBatch struct {
	Channel     string
	ChannelArgs string
	SenderType  string
	Sender      string
	Recipients  []BatchRecipientItem
}

// ChannelIDsByUser 按 user_identifier 归并 channel_id，无标识的归入空键
func (b *RecipientsBatch) ChannelIDsByUser() map[string][]string {
	byUser := make(map[string][]string)
	for _, r := range b.Recipients {
		byUser[r.UserIdentifier] = append(byUser[r.UserIdentifier], r.ChannelID)
	}
	return byUser
}

// DispatchItem 批次器的输出单元：二者有且仅有一个非空
type DispatchItem struct {
	// Recipient 不支持批量的渠道按原始顺序逐个透传
	Recipient *RecipientItem
	// Batch 支持批量的渠道按键分组，批次满即封口
	Batch *RecipientsBatch
}

// BatchConfig 支持批量的渠道及其单批上限
type BatchConfig map[string]int

// batchKey 分组键：渠道 + 渠道参数 + 发送方类型 + 发送方完全一致才可合批
type batchKey struct {
	channel     string
	channelArgs string
	senderType  string
	sender      string
}

// BatchPendingRecipients 将 Pending 收件人分组为调度单元。
// 终态收件人整体排除，支持幂等的重复调用；批次达到上限立即产出，
// 剩余未满的批次按键首次出现的顺序在末尾补齐。
func BatchPendingRecipients(recipients []RecipientItem, cfg BatchConfig) []DispatchItem {
	items := make([]DispatchItem, 0, len(recipients))
	active := make(map[batchKey]*RecipientsBatch)
	order := make([]batchKey, 0)

	for i := range recipients {
		r := &recipients[i]
		if r.Status != "" && r.Status != RecipientStatusPending {
			continue
		}

		maxSize, batched := cfg[r.Channel]
		if !batched {
			items = append(items, DispatchItem{Recipient: r})
			continue
		}
		if maxSize <= 0 {
			maxSize = DefaultBatchSize
		}

		k := batchKey{
			channel:     r.Channel,
			channelArgs: string(r.ChannelArgs),
			senderType:  r.SenderType,
			sender:      r.Sender,
		}
		b, ok := active[k]
		if !ok {
			b = &RecipientsBatch{
				Channel:     r.Channel,
				ChannelArgs: string(r.ChannelArgs),
				SenderType:  r.SenderType,
				Sender:      r.Sender,
			}
			active[k] = b
			order = append(order, k)
		}

		b.Recipients = append(b.Recipients, BatchRecipientItem{
			OutboxRowName:  r.Name,
			UserIdentifier: r.UserIdentifier,
			ChannelID:      r.ChannelID,
		})

		if len(b.Recipients) >= maxSize {
			// 当前批次已满，封口后同键的后续收件人开新批
			items = append(items, DispatchItem{Batch: b})
			delete(active, k)
			order = removeKey(order, k)
		}
	}

	for _, k := range order {
		if b, ok := active[k]; ok {
			items = append(items, DispatchItem{Batch: b})
		}
	}
	return items
}

func removeKey(keys []batchKey, k batchKey) []batchKey {
	for i := range keys {
		if keys[i] == k {
			return append(keys[:i], keys[i+1:]...)
		}
	}
	return keys
}
