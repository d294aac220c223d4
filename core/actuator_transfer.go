package core

import "fmt"

// transferActuator moves TRX between two accounts, creating the
// destination account on first reception of value (spec.md §3 account
// lifecycle).
type transferActuator struct{}

func (transferActuator) Validate(c *ActuatorContext, contract *Contract) error {
	p := contract.Transfer
	if p == nil {
		return fmt.Errorf("%w: missing TransferContract payload", ErrValidation)
	}
	if p.Amount <= 0 {
		return fmt.Errorf("%w: transfer amount must be positive", ErrValidation)
	}
	owner, err := requireOwner(c)
	if err != nil {
		return err
	}
	if owner.Balance < p.Amount {
		return fmt.Errorf("%w: insufficient balance for transfer", ErrValidation)
	}
	return nil
}

func (transferActuator) Execute(c *ActuatorContext, contract *Contract) error {
	p := contract.Transfer
	owner, found, err := c.State.GetAccount(c.Owner)
	if err != nil {
		return err
	}
	if !found || owner.Balance < p.Amount {
		return fmt.Errorf("%w: insufficient balance for transfer", ErrExecution)
	}
	to, existed, err := c.State.GetOrCreateAccount(p.ToAddress)
	if err != nil {
		return err
	}
	if !existed {
		c.Tx.NewAccountCreated = true
	}
	owner.Balance -= p.Amount
	to.Balance += p.Amount
	if err := c.State.PutAccount(owner); err != nil {
		return err
	}
	return c.State.PutAccount(to)
}

// transferAssetActuator moves a TRC-10 token balance between accounts.
type transferAssetActuator struct{}

func (transferAssetActuator) Validate(c *ActuatorContext, contract *Contract) error {
	p := contract.TransferAsset
	if p == nil {
		return fmt.Errorf("%w: missing TransferAssetContract payload", ErrValidation)
	}
	if p.Amount <= 0 {
		return fmt.Errorf("%w: asset transfer amount must be positive", ErrValidation)
	}
	owner, err := requireOwner(c)
	if err != nil {
		return err
	}
	assetID := ParseAssetID(p.AssetName, c.Dynamic.Allowed(AllowSameTokenName))
	if _, found, err := c.State.GetAsset(assetID); err != nil {
		return err
	} else if !found {
		return fmt.Errorf("%w: unknown asset", ErrValidation)
	}
	if owner.TokenBalance[assetID] < p.Amount {
		return fmt.Errorf("%w: insufficient asset balance", ErrValidation)
	}
	return nil
}

func (transferAssetActuator) Execute(c *ActuatorContext, contract *Contract) error {
	p := contract.TransferAsset
	assetID := ParseAssetID(p.AssetName, c.Dynamic.Allowed(AllowSameTokenName))
	owner, found, err := c.State.GetAccount(c.Owner)
	if err != nil {
		return err
	}
	if !found || owner.TokenBalance[assetID] < p.Amount {
		return fmt.Errorf("%w: insufficient asset balance", ErrExecution)
	}
	to, existed, err := c.State.GetOrCreateAccount(p.ToAddress)
	if err != nil {
		return err
	}
	if !existed {
		c.Tx.NewAccountCreated = true
	}
	owner.TokenBalance[assetID] -= p.Amount
	if to.TokenBalance == nil {
		to.TokenBalance = make(map[int64]int64)
	}
	to.TokenBalance[assetID] += p.Amount
	if err := c.State.PutAccount(owner); err != nil {
		return err
	}
	return c.State.PutAccount(to)
}

// assetIssueActuator creates a new TRC-10 token, owned and fully credited
// to the issuing account.
type assetIssueActuator struct{}

func (assetIssueActuator) Validate(c *ActuatorContext, contract *Contract) error {
	p := contract.AssetIssue
	if p == nil {
		return fmt.Errorf("%w: missing AssetIssueContract payload", ErrValidation)
	}
	if len(p.Name) == 0 || len(p.Name) > MaxContractNameLength {
		return fmt.Errorf("%w: invalid asset name length", ErrValidation)
	}
	if p.TotalSupply <= 0 {
		return fmt.Errorf("%w: total supply must be positive", ErrValidation)
	}
	if p.StartTime >= p.EndTime {
		return fmt.Errorf("%w: asset start_time must precede end_time", ErrValidation)
	}
	if _, err := requireOwner(c); err != nil {
		return err
	}
	return nil
}

func (assetIssueActuator) Execute(c *ActuatorContext, contract *Contract) error {
	p := contract.AssetIssue
	owner, found, err := c.State.GetAccount(c.Owner)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("%w: owner account missing", ErrExecution)
	}
	if owner.IssuedAssetID != 0 {
		return fmt.Errorf("%w: account has already issued an asset", ErrExecution)
	}
	assetID, err := c.State.NextAssetID()
	if err != nil {
		return err
	}
	asset := &Asset{
		ID: assetID, Name: p.Name, Abbr: p.Abbr, Owner: c.Owner,
		TotalSupply: p.TotalSupply, Precision: p.Precision,
		FrozenSupply: p.FrozenSupply,
		PublicFreeAssetBandwidthLimit: p.PublicFreeAssetBandwidthLimit,
		FreeAssetBandwidthLimit:       p.FreeAssetBandwidthLimit,
		StartTime:                     p.StartTime,
		EndTime:                       p.EndTime,
		Description:                   p.Description,
		URL:                           p.URL,
	}
	owner.IssuedAssetID = assetID
	if owner.TokenBalance == nil {
		owner.TokenBalance = make(map[int64]int64)
	}
	owner.TokenBalance[assetID] = p.TotalSupply
	if err := c.State.PutAsset(asset); err != nil {
		return err
	}
	return c.State.PutAccount(owner)
}

// participateAssetIssueActuator buys into an asset's ICO window at a fixed
// 1:1 price: Amount TRX buys Amount tokens. No per-asset TRX-to-token
// ratio is stored or applied.
type participateAssetIssueActuator struct{}

func (participateAssetIssueActuator) Validate(c *ActuatorContext, contract *Contract) error {
	p := contract.ParticipateIssue
	if p == nil {
		return fmt.Errorf("%w: missing ParticipateAssetIssueContract payload", ErrValidation)
	}
	if p.Amount <= 0 {
		return fmt.Errorf("%w: participate amount must be positive", ErrValidation)
	}
	owner, err := requireOwner(c)
	if err != nil {
		return err
	}
	if owner.Balance < p.Amount {
		return fmt.Errorf("%w: insufficient balance to participate", ErrValidation)
	}
	assetID := ParseAssetID(p.AssetName, c.Dynamic.Allowed(AllowSameTokenName))
	asset, found, err := c.State.GetAsset(assetID)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("%w: unknown asset", ErrValidation)
	}
	if c.BlockTime < asset.StartTime || c.BlockTime > asset.EndTime {
		return fmt.Errorf("%w: asset not in its issuance window", ErrValidation)
	}
	return nil
}

func (participateAssetIssueActuator) Execute(c *ActuatorContext, contract *Contract) error {
	p := contract.ParticipateIssue
	assetID := ParseAssetID(p.AssetName, c.Dynamic.Allowed(AllowSameTokenName))
	asset, found, err := c.State.GetAsset(assetID)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("%w: unknown asset", ErrExecution)
	}
	owner, found, err := c.State.GetAccount(c.Owner)
	if err != nil {
		return err
	}
	if !found || owner.Balance < p.Amount {
		return fmt.Errorf("%w: insufficient balance to participate", ErrExecution)
	}
	issuer, found, err := c.State.GetAccount(asset.Owner)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("%w: asset issuer missing", ErrIntegrity)
	}
	owner.Balance -= p.Amount
	issuer.Balance += p.Amount
	if owner.TokenBalance == nil {
		owner.TokenBalance = make(map[int64]int64)
	}
	owner.TokenBalance[assetID] += p.Amount
	if issuer.TokenBalance[assetID] < p.Amount {
		return fmt.Errorf("%w: insufficient remaining asset supply", ErrExecution)
	}
	issuer.TokenBalance[assetID] -= p.Amount
	if err := c.State.PutAccount(owner); err != nil {
		return err
	}
	return c.State.PutAccount(issuer)
}

// updateAssetActuator lets an asset's issuer revise its bandwidth limits
// and descriptive fields after issuance.
type updateAssetActuator struct{}

func (updateAssetActuator) Validate(c *ActuatorContext, contract *Contract) error {
	p := contract.UpdateAsset
	if p == nil {
		return fmt.Errorf("%w: missing UpdateAssetContract payload", ErrValidation)
	}
	if p.NewLimit < 0 || p.NewPublicLimit < 0 {
		return fmt.Errorf("%w: negative asset bandwidth limit", ErrValidation)
	}
	owner, err := requireOwner(c)
	if err != nil {
		return err
	}
	if owner.IssuedAssetID == 0 {
		return fmt.Errorf("%w: account has not issued an asset", ErrValidation)
	}
	return nil
}

func (updateAssetActuator) Execute(c *ActuatorContext, contract *Contract) error {
	p := contract.UpdateAsset
	owner, found, err := c.State.GetAccount(c.Owner)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("%w: owner account missing", ErrExecution)
	}
	asset, found, err := c.State.GetAsset(owner.IssuedAssetID)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("%w: issued asset record missing", ErrIntegrity)
	}
	asset.Description = p.Description
	asset.URL = p.URL
	asset.FreeAssetBandwidthLimit = p.NewLimit
	asset.PublicFreeAssetBandwidthLimit = p.NewPublicLimit
	return c.State.PutAsset(asset)
}

// unfreezeAssetActuator releases an asset issuer's expired FrozenSupply
// entries back into circulating TotalSupply-tracked token balance.
type unfreezeAssetActuator struct{}

func (unfreezeAssetActuator) Validate(c *ActuatorContext, contract *Contract) error {
	owner, err := requireOwner(c)
	if err != nil {
		return err
	}
	if owner.IssuedAssetID == 0 {
		return fmt.Errorf("%w: account has not issued an asset", ErrValidation)
	}
	asset, found, err := c.State.GetAsset(owner.IssuedAssetID)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("%w: issued asset record missing", ErrIntegrity)
	}
	if !hasExpiredFrozenSupply(asset, c.BlockTime) {
		return fmt.Errorf("%w: no expired frozen asset supply to release", ErrValidation)
	}
	return nil
}

func hasExpiredFrozenSupply(asset *Asset, nowMs int64) bool {
	for _, f := range asset.FrozenSupply {
		if f.FrozenDays*86400*1000 <= nowMs {
			return true
		}
	}
	return false
}

func (unfreezeAssetActuator) Execute(c *ActuatorContext, contract *Contract) error {
	owner, found, err := c.State.GetAccount(c.Owner)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("%w: owner account missing", ErrExecution)
	}
	asset, found, err := c.State.GetAsset(owner.IssuedAssetID)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("%w: issued asset record missing", ErrIntegrity)
	}
	var kept []FrozenSupply
	var released int64
	for _, f := range asset.FrozenSupply {
		if f.FrozenDays*86400*1000 <= c.BlockTime {
			released += f.FrozenAmount
		} else {
			kept = append(kept, f)
		}
	}
	if released == 0 {
		return fmt.Errorf("%w: no expired frozen asset supply to release", ErrExecution)
	}
	asset.FrozenSupply = kept
	if owner.TokenBalance == nil {
		owner.TokenBalance = make(map[int64]int64)
	}
	owner.TokenBalance[asset.ID] += released
	if err := c.State.PutAsset(asset); err != nil {
		return err
	}
	return c.State.PutAccount(owner)
}
